package di

// LifetimeScope 生命周期
type LifetimeScope int

const (
	Transient LifetimeScope = iota // Transient: 每次解析都创建新实例
	Singleton                      // Singleton: 全局唯一，缓存在根容器
	Scoped                         // Scoped: 作用域内唯一，不同作用域相互隔离
)

func (s LifetimeScope) String() string {
	switch s {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return "unknown"
	}
}
