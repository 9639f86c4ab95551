package di

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// Pass 编译期处理器：在 Compile 时按注册顺序执行，可修改定义
type Pass interface {
	Process(b *Builder) error
}

// PassFunc 函数适配 Pass
type PassFunc func(b *Builder) error

func (f PassFunc) Process(b *Builder) error { return f(b) }

// Builder 编译期容器：收集定义、别名与编译期处理器，Compile 后冻结
type Builder struct {
	definitions map[string]*Definition
	aliases     map[string]string       // 别名 -> 服务ID
	types       map[reflect.Type]string // 自动装配：类型 -> 服务ID
	passes      []Pass
	compiled    bool
	mu          sync.RWMutex
}

// NewBuilder 创建新的编译期容器
func NewBuilder() *Builder {
	return &Builder{
		definitions: make(map[string]*Definition),
		aliases:     make(map[string]string),
		types:       make(map[reflect.Type]string),
	}
}

// Register 构造函数注册：以 id 注册，并按返回值类型登记自动装配（先到先得）
func (b *Builder) Register(id string, ctor any, scope LifetimeScope) (*Definition, error) {
	def, err := NewDefinition(ctor, scope)
	if err != nil {
		return nil, fmt.Errorf("%w，服务：%s", err, id)
	}
	if err := b.add(id, def); err != nil {
		return nil, err
	}
	return def, nil
}

// RegisterInstance 实例注册
func (b *Builder) RegisterInstance(id string, instance any) (*Definition, error) {
	def, err := NewInstanceDefinition(instance)
	if err != nil {
		return nil, fmt.Errorf("%w，服务：%s", err, id)
	}
	if err := b.add(id, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (b *Builder) add(id string, def *Definition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compiled {
		return ErrBuilderCompiled
	}
	if id == "" {
		return ErrEmptyID
	}
	if _, exists := b.definitions[id]; exists {
		return fmt.Errorf("%w，服务：%s", ErrRegisterDuplicate, id)
	}
	b.definitions[id] = def
	if _, taken := b.types[def.class]; !taken {
		b.types[def.class] = id
	}
	return nil
}

// SetDefinition 设置（或替换）定义，不登记自动装配
func (b *Builder) SetDefinition(id string, def *Definition) *Definition {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.definitions[id] = def
	return def
}

func (b *Builder) HasDefinition(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.definitions[id]
	return ok
}

func (b *Builder) Definition(id string) (*Definition, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	def, ok := b.definitions[id]
	return def, ok
}

// SetAlias 设置别名
func (b *Builder) SetAlias(alias, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aliases[alias] = id
}

func (b *Builder) HasAlias(alias string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.aliases[alias]
	return ok
}

// Autowire 把接口类型绑定到服务ID，interfaceType 形如 (*IInterface)(nil)
func (b *Builder) Autowire(interfaceType any, id string) error {
	targetType := reflect.TypeOf(interfaceType)
	if targetType == nil || targetType.Kind() != reflect.Ptr {
		return ErrInvalidInterfaceType
	}
	svcType := targetType.Elem()
	if svcType.Kind() != reflect.Interface {
		// 具体类型：使用完整的指针类型
		svcType = targetType
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types[svcType] = id
	return nil
}

// IDs 所有定义ID（排序后）
func (b *Builder) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.definitions))
}

// FindTaggedServiceIDs 查找带指定标签的服务：服务ID -> 标签属性列表
func (b *Builder) FindTaggedServiceIDs(tag string) map[string][]map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	found := make(map[string][]map[string]string)
	for id, def := range b.definitions {
		if def.HasTag(tag) {
			found[id] = def.Tags(tag)
		}
	}
	return found
}

// AddPass 追加编译期处理器
func (b *Builder) AddPass(p Pass) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passes = append(b.passes, p)
}

// Compile 依次执行所有处理器，校验引用后生成运行时容器；之后定义不可再修改
func (b *Builder) Compile() (*Container, error) {
	b.mu.RLock()
	if b.compiled {
		b.mu.RUnlock()
		return nil, ErrBuilderCompiled
	}
	passes := slices.Clone(b.passes)
	b.mu.RUnlock()

	for _, p := range passes {
		if err := p.Process(b); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range slices.Sorted(maps.Keys(b.definitions)) {
		for _, ref := range b.definitions[id].references() {
			if !b.existsLocked(ref) {
				return nil, fmt.Errorf("%w，服务：%s，引用：%s", ErrServiceNotRegistered, id, ref)
			}
		}
	}
	b.compiled = true

	c := &Container{
		entries: make(map[string]*entry, len(b.definitions)),
		aliases: maps.Clone(b.aliases),
		types:   maps.Clone(b.types),
	}
	for id, def := range b.definitions {
		c.entries[id] = &entry{id: id, def: def}
	}
	return c, nil
}

func (b *Builder) existsLocked(id string) bool {
	if _, ok := b.definitions[id]; ok {
		return true
	}
	target, ok := b.aliases[id]
	if !ok {
		return false
	}
	_, ok = b.definitions[target]
	return ok
}

// MustRegister 便捷注册：出错直接Panic
func (b *Builder) MustRegister(id string, ctor any, scope LifetimeScope) *Definition {
	def, err := b.Register(id, ctor, scope)
	if err != nil {
		panic(fmt.Sprintf("【DI注册失败】%v", err))
	}
	return def
}

// MustRegisterInstance 便捷实例注册：出错直接Panic
func (b *Builder) MustRegisterInstance(id string, instance any) *Definition {
	def, err := b.RegisterInstance(id, instance)
	if err != nil {
		panic(fmt.Sprintf("【DI实例注册失败】%v", err))
	}
	return def
}
