package di

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// entry 运行时服务：定义 + 单例缓存
type entry struct {
	id       string
	def      *Definition
	mu       sync.Mutex    // 单例初始化锁
	instance reflect.Value // 单例实例缓存
}

// Container 运行时容器：由 Builder.Compile 生成，定义只读
type Container struct {
	entries map[string]*entry
	aliases map[string]string
	types   map[reflect.Type]string
}

// Scope 同一个Scope内Scoped实例唯一，不同Scope相互隔离
type Scope struct {
	root       *Container               // 关联根容器（共享定义）
	scopedInst map[string]reflect.Value // 本作用域 Scoped 实例缓存
	mu         sync.RWMutex
}

// Resolver 按ID解析服务（Container 与 Scope 均实现）
type Resolver interface {
	Get(ctx context.Context, id string) (any, error)
}

var (
	_ Resolver = (*Container)(nil)
	_ Resolver = (*Scope)(nil)
)

// Has 是否存在该服务（含别名）
func (c *Container) Has(id string) bool {
	_, ok := c.lookup(id)
	return ok
}

func (c *Container) lookup(id string) (*entry, bool) {
	if target, ok := c.aliases[id]; ok {
		id = target
	}
	e, ok := c.entries[id]
	return e, ok
}

// Get 按ID获取公开服务
func (c *Container) Get(ctx context.Context, id string) (any, error) {
	return c.get(ctx, nil, id)
}

// Resolve 按类型解析：out 为目标类型的指针
func (c *Container) Resolve(ctx context.Context, out any) error {
	return c.resolveOut(ctx, nil, out)
}

// NewScope 创建作用域
func (c *Container) NewScope() *Scope {
	return &Scope{
		root:       c,
		scopedInst: make(map[string]reflect.Value),
	}
}

// Get 作用域内按ID获取公开服务
func (s *Scope) Get(ctx context.Context, id string) (any, error) {
	return s.root.get(ctx, s, id)
}

// Resolve 作用域内按类型解析
func (s *Scope) Resolve(ctx context.Context, out any) error {
	return s.root.resolveOut(ctx, s, out)
}

// Reset 清空本作用域缓存
func (s *Scope) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopedInst = make(map[string]reflect.Value)
}

func (c *Container) get(ctx context.Context, s *Scope, id string) (any, error) {
	e, ok := c.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w，服务：%s", ErrServiceNotRegistered, id)
	}
	if !e.def.public {
		return nil, fmt.Errorf("%w，服务：%s", ErrServiceNotPublic, id)
	}
	v, err := c.resolve(ctx, s, e.id, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (c *Container) resolveOut(ctx context.Context, s *Scope, out any) error {
	outVal := reflect.ValueOf(out)
	if !outVal.IsValid() || outVal.Kind() != reflect.Ptr || outVal.IsNil() {
		return ErrInvalidOutPtr
	}
	svcType := outVal.Elem().Type()
	id, ok := c.types[svcType]
	if !ok {
		return fmt.Errorf("%w，类型：%s", ErrServiceNotRegistered, svcType)
	}
	instance, err := c.resolve(ctx, s, id, make(map[string]bool))
	if err != nil {
		return err
	}
	converted, err := convert(instance, svcType)
	if err != nil {
		return err
	}
	outVal.Elem().Set(converted)
	return nil
}

// resolve 内部递归解析核心方法：处理依赖、缓存、生命周期
func (c *Container) resolve(ctx context.Context, s *Scope, id string, track map[string]bool) (reflect.Value, error) {
	e, ok := c.lookup(id)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w，服务：%s", ErrServiceNotRegistered, id)
	}

	// 循环依赖检测
	if track[e.id] {
		return reflect.Value{}, fmt.Errorf("%w，循环依赖链包含：%s", ErrResolveCircularDependency, e.id)
	}
	track[e.id] = true
	defer delete(track, e.id)

	def := e.def
	if def.isInstance {
		return def.instance, nil
	}

	switch def.scope {
	case Singleton:
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.instance.IsValid() {
			return e.instance, nil
		}
		instance, err := c.build(ctx, s, e, track)
		if err != nil {
			return reflect.Value{}, err
		}
		e.instance = instance
		return instance, nil

	case Scoped:
		// Scoped禁止根容器直接解析，强制使用作用域
		if s == nil {
			return reflect.Value{}, fmt.Errorf("%w，服务：%s", ErrScopedOnRootContainer, e.id)
		}
		s.mu.RLock()
		inst, exists := s.scopedInst[e.id]
		s.mu.RUnlock()
		if exists {
			return inst, nil
		}
		instance, err := c.build(ctx, s, e, track)
		if err != nil {
			return reflect.Value{}, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		// 并发创建时保留先写入的实例
		if inst, exists := s.scopedInst[e.id]; exists {
			return inst, nil
		}
		s.scopedInst[e.id] = instance
		return instance, nil

	default:
		return c.build(ctx, s, e, track)
	}
}

// build 调用构造函数或工厂方法创建实例
func (c *Container) build(ctx context.Context, s *Scope, e *entry, track map[string]bool) (reflect.Value, error) {
	def := e.def
	fn := def.ctor
	if def.factory != nil {
		factory, err := c.resolve(ctx, s, def.factory.Service, track)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("解析工厂%s失败：%w", def.factory.Service, err)
		}
		fn = factory.MethodByName(def.factory.Method)
		if !fn.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w，服务：%s，工厂：%s", ErrFactoryMethod, e.id, def.factory)
		}
	}

	params, err := c.arguments(ctx, s, e, fn.Type(), track)
	if err != nil {
		return reflect.Value{}, err
	}

	results := fn.Call(params)
	if len(results) == 2 && !results[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("%w，服务：%s：%w", ErrCreateInstanceFailed, e.id, results[1].Interface().(error))
	}
	if len(results) == 0 {
		return reflect.Value{}, fmt.Errorf("%w，服务：%s，构造函数调用返回值异常", ErrCreateInstanceFailed, e.id)
	}
	instance := results[0]
	// 接口返回值取出动态值，便于赋给具体类型参数
	if instance.Kind() == reflect.Interface && !instance.IsNil() {
		instance = instance.Elem()
	}
	return instance, nil
}

// arguments 解析参数：context 参数注入 ctx；构造函数按参数下标覆盖，
// 工厂方法按非 context 参数的顺序覆盖；其余按类型自动装配
func (c *Container) arguments(ctx context.Context, s *Scope, e *entry, fnType reflect.Type, track map[string]bool) ([]reflect.Value, error) {
	def := e.def
	numIn := fnType.NumIn()
	params := make([]reflect.Value, 0, numIn)
	position := 0
	for i := 0; i < numIn; i++ {
		pType := fnType.In(i)
		if pType == contextType {
			params = append(params, reflect.ValueOf(&ctx).Elem())
			continue
		}

		index := i
		if def.factory != nil {
			index = position
			position++
		}

		override, hasOverride := def.args[index]
		if !hasOverride && fnType.IsVariadic() && i == numIn-1 {
			break
		}

		var (
			pInstance reflect.Value
			err       error
		)
		switch {
		case !hasOverride:
			id, ok := c.types[pType]
			if !ok {
				return nil, fmt.Errorf("解析依赖%s失败：%w，服务：%s", pType, ErrServiceNotRegistered, e.id)
			}
			pInstance, err = c.resolve(ctx, s, id, track)
		case isReference(override):
			pInstance, err = c.resolve(ctx, s, string(override.(Reference)), track)
		case override == nil:
			pInstance = reflect.Zero(pType)
		default:
			pInstance = reflect.ValueOf(override)
		}
		if err != nil {
			return nil, fmt.Errorf("解析依赖%s失败：%w", pType, err)
		}
		if fnType.IsVariadic() && i == numIn-1 {
			pType = pType.Elem()
		}
		converted, err := convert(pInstance, pType)
		if err != nil {
			return nil, fmt.Errorf("服务%s第%d个参数：%w", e.id, i, err)
		}
		params = append(params, converted)
	}
	return params, nil
}

func isReference(v any) bool {
	_, ok := v.(Reference)
	return ok
}

// convert 将实例转换为目标类型（可赋值/可转换）
func convert(instance reflect.Value, target reflect.Type) (reflect.Value, error) {
	it := instance.Type()
	if it.AssignableTo(target) {
		return instance, nil
	}
	if it.ConvertibleTo(target) && target.Kind() != reflect.Interface {
		return instance.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("【%w】实例%s无法转换为目标类型%s", ErrTypeConvertFailed, it, target)
}

// Get 泛型解析：按ID获取并转换为T
func Get[T any](ctx context.Context, r Resolver, id string) (T, error) {
	var zero T
	v, err := r.Get(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("【DI获取失败】%w", err)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("【%w】实例%T无法转换为目标类型%s", ErrTypeConvertFailed, v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

// MustGet 泛型便捷解析：出错Panic
func MustGet[T any](ctx context.Context, r Resolver, id string) T {
	inst, err := Get[T](ctx, r, id)
	if err != nil {
		panic(err)
	}
	return inst
}
