package di

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Reference 服务引用：构造参数指向容器中另一个定义的ID
type Reference string

func (r Reference) String() string { return string(r) }

// Factory 工厂方法引用：由另一个服务的导出方法创建实例
type Factory struct {
	Service string // 工厂服务ID
	Method  string // 工厂方法名
}

func (f Factory) String() string { return f.Service + "::" + f.Method }

// TypeOf T 的反射类型，接口类型同样适用
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Definition 服务定义：编译期可修改的注册元信息（构造函数/工厂/实例、参数覆盖、可见性、标签）
type Definition struct {
	class      reflect.Type  // 服务实现类型（构造函数返回值、工厂产品类型或实例类型）
	scope      LifetimeScope // 生命周期
	ctor       reflect.Value // 构造函数反射值（工厂/实例定义为空）
	ctorType   reflect.Type  // 构造函数反射类型
	factory    *Factory      // 工厂方法引用
	instance   reflect.Value // 预注册实例
	isInstance bool          // 是否为实例注册
	args       map[int]any   // 位置参数覆盖：Reference 或字面量
	public     bool          // 是否允许外部直接获取
	tags       map[string][]map[string]string
}

// NewDefinition 构造函数定义：ctor 必须是返回 (T) 或 (T, error) 的函数
func NewDefinition(ctor any, scope LifetimeScope) (*Definition, error) {
	if ctor == nil {
		return nil, ErrNotFunc
	}
	ctorVal := reflect.ValueOf(ctor)
	ctorType := ctorVal.Type()
	if ctorType.Kind() != reflect.Func {
		return nil, ErrNotFunc
	}

	numOut := ctorType.NumOut()
	if numOut == 0 || numOut > 2 || (numOut == 2 && ctorType.Out(1) != errorType) {
		return nil, fmt.Errorf("%w，当前返回值数量：%d", ErrNoReturn, numOut)
	}

	return &Definition{
		class:    ctorType.Out(0),
		scope:    scope,
		ctor:     ctorVal,
		ctorType: ctorType,
		public:   true,
	}, nil
}

// NewInstanceDefinition 实例定义：直接使用已创建的实例
func NewInstanceDefinition(instance any) (*Definition, error) {
	if instance == nil {
		return nil, ErrNilInstance
	}
	instVal := reflect.ValueOf(instance)
	return &Definition{
		class:      instVal.Type(),
		scope:      Singleton,
		instance:   instVal,
		isInstance: true,
		public:     true,
	}, nil
}

// NewFactoryDefinition 工厂定义：运行时调用 factory 服务的方法创建实例。
// class 是产品的声明类型；args 依次填充方法中非 context 的参数。
func NewFactoryDefinition(class reflect.Type, factory Factory, args ...any) *Definition {
	def := &Definition{
		class:   class,
		scope:   Transient,
		factory: &factory,
		public:  true,
	}
	for i, arg := range args {
		def.SetArgument(i, arg)
	}
	return def
}

// Class 服务实现类型，未知时为 nil
func (d *Definition) Class() reflect.Type { return d.class }

func (d *Definition) Lifetime() LifetimeScope { return d.scope }

func (d *Definition) SetLifetime(scope LifetimeScope) *Definition {
	d.scope = scope
	return d
}

// HasConstructor 是否为构造函数定义
func (d *Definition) HasConstructor() bool { return d.ctorType != nil }

// ParamTypes 构造函数参数类型（按声明顺序），无构造函数时返回 nil
func (d *Definition) ParamTypes() []reflect.Type {
	if d.ctorType == nil {
		return nil
	}
	params := make([]reflect.Type, d.ctorType.NumIn())
	for i := range params {
		params[i] = d.ctorType.In(i)
	}
	return params
}

func (d *Definition) Factory() (Factory, bool) {
	if d.factory == nil {
		return Factory{}, false
	}
	return *d.factory, true
}

// SetArgument 覆盖第 index 个参数
func (d *Definition) SetArgument(index int, value any) *Definition {
	if d.args == nil {
		d.args = make(map[int]any)
	}
	d.args[index] = value
	return d
}

func (d *Definition) Argument(index int) (any, bool) {
	v, ok := d.args[index]
	return v, ok
}

// Arguments 参数覆盖快照
func (d *Definition) Arguments() map[int]any {
	return maps.Clone(d.args)
}

func (d *Definition) IsPublic() bool { return d.public }

func (d *Definition) SetPublic(public bool) *Definition {
	d.public = public
	return d
}

// AddTag 追加标签，同名标签可重复出现
func (d *Definition) AddTag(name string, attributes map[string]string) *Definition {
	if d.tags == nil {
		d.tags = make(map[string][]map[string]string)
	}
	d.tags[name] = append(d.tags[name], maps.Clone(attributes))
	return d
}

func (d *Definition) HasTag(name string) bool {
	_, ok := d.tags[name]
	return ok
}

// Tags 返回指定标签的属性列表（拷贝）
func (d *Definition) Tags(name string) []map[string]string {
	src := d.tags[name]
	if src == nil {
		return nil
	}
	out := make([]map[string]string, len(src))
	for i, attrs := range src {
		out[i] = maps.Clone(attrs)
	}
	return out
}

func (d *Definition) TagNames() []string {
	return slices.Sorted(maps.Keys(d.tags))
}

// references 定义中出现的所有服务引用（参数 + 工厂服务）
func (d *Definition) references() []string {
	var refs []string
	if d.factory != nil {
		refs = append(refs, d.factory.Service)
	}
	for _, i := range slices.Sorted(maps.Keys(d.args)) {
		if ref, ok := d.args[i].(Reference); ok {
			refs = append(refs, string(ref))
		}
	}
	return refs
}
