package dedicated

import (
	"go.uber.org/zap"

	"github.com/Ngone6325/dedicated/di"
	"github.com/Ngone6325/dedicated/orm"
	"github.com/Ngone6325/dedicated/scope"
)

// Options 注册选项，零值可用
type Options struct {
	Naming Naming
	// Scope 为空时使用进程级作用域
	Scope  scope.Context
	Logger *zap.Logger
}

// Register 注册两个工厂服务并追加 ChannelPass。
// 容器中还需要默认实体管理器（Naming.DefaultEntityManagerID）和连接提供方（Naming.ConnectionFactoryID）
func Register(b *di.Builder, opts Options) error {
	n := opts.Naming
	sc := opts.Scope
	if sc == nil {
		sc = scope.NewProcess()
	}
	logger := orDefault(opts.Logger)

	emf, err := b.Register(n.EntityManagerFactoryID(), NewEntityManagerFactory, di.Singleton)
	if err != nil {
		return err
	}
	emf.SetArgument(0, di.Reference(n.DefaultEntityManagerID())).
		SetArgument(1, di.Reference(n.ConnectionFactoryID())).
		SetArgument(2, sc).
		SetArgument(3, logger)

	rf, err := b.Register(n.RegistryFactoryID(), NewManagerRegistryFactory, di.Singleton)
	if err != nil {
		return err
	}
	rf.SetArgument(0, di.Reference(n.EntityManagerFactoryID())).
		SetArgument(1, di.Reference(n.ConnectionFactoryID())).
		SetArgument(2, sc).
		SetArgument(3, n).
		SetArgument(4, logger)

	b.AddPass(NewChannelPass(n, logger))
	return nil
}

// RegisterDefaultEntityManager 注册默认实体管理器，并作为 orm.EntityManager 的自动装配目标
func RegisterDefaultEntityManager(b *di.Builder, naming Naming, em orm.EntityManager) error {
	id := naming.DefaultEntityManagerID()
	if _, err := b.RegisterInstance(id, em); err != nil {
		return err
	}
	return b.Autowire((*orm.EntityManager)(nil), id)
}
