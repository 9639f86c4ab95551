package di

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// Test types
type TestService struct {
	Value string
}

func NewTestService() *TestService {
	return &TestService{Value: "test"}
}

type TestDependency struct {
	Name string
}

func NewTestDependency() *TestDependency {
	return &TestDependency{Name: "dependency"}
}

type TestServiceWithDep struct {
	Dep *TestDependency
}

func NewTestServiceWithDep(dep *TestDependency) *TestServiceWithDep {
	return &TestServiceWithDep{Dep: dep}
}

// Test interface
type ITestInterface interface {
	GetValue() string
}

type TestImpl struct {
	Value string
}

func (t *TestImpl) GetValue() string {
	return t.Value
}

func NewTestImpl() *TestImpl {
	return &TestImpl{Value: "impl"}
}

type ctxKey struct{}

type TestContextService struct {
	Request string
}

func NewTestContextService(ctx context.Context) *TestContextService {
	v, _ := ctx.Value(ctxKey{}).(string)
	return &TestContextService{Request: v}
}

type CycleA struct{ B *CycleB }
type CycleB struct{ A *CycleA }

func NewCycleA(b *CycleB) *CycleA { return &CycleA{B: b} }
func NewCycleB(a *CycleA) *CycleB { return &CycleB{A: a} }

func mustCompile(t *testing.T, b *Builder) *Container {
	t.Helper()
	c, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return c
}

// TestResolve tests basic resolution by id and by type
func TestResolve(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Singleton)
	c := mustCompile(t, b)
	ctx := context.Background()

	v, err := c.Get(ctx, "svc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(*TestService).Value != "test" {
		t.Errorf("Expected 'test', got '%s'", v.(*TestService).Value)
	}

	var result *TestService
	if err := c.Resolve(ctx, &result); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result != v {
		t.Error("Expected Resolve and Get to return the same singleton")
	}
}

// TestResolveDependency tests constructor dependency autowiring
func TestResolveDependency(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("dep", NewTestDependency, Singleton)
	b.MustRegister("svc", NewTestServiceWithDep, Transient)
	c := mustCompile(t, b)

	svc, err := Get[*TestServiceWithDep](context.Background(), c, "svc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if svc.Dep == nil || svc.Dep.Name != "dependency" {
		t.Errorf("Expected injected dependency, got %+v", svc.Dep)
	}
}

// TestRegisterInstance tests instance registration
func TestRegisterInstance(t *testing.T) {
	b := NewBuilder()
	instance := &TestService{Value: "instance"}
	if _, err := b.RegisterInstance("svc", instance); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}
	c := mustCompile(t, b)

	var result *TestService
	if err := c.Resolve(context.Background(), &result); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result != instance {
		t.Error("Expected same instance reference")
	}
}

// TestRegisterInstanceNil tests that nil instances are rejected
func TestRegisterInstanceNil(t *testing.T) {
	b := NewBuilder()
	if _, err := b.RegisterInstance("svc", nil); !errors.Is(err, ErrNilInstance) {
		t.Errorf("Expected ErrNilInstance, got %v", err)
	}
}

// TestSingletonLifetime tests that singletons are created once
func TestSingletonLifetime(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Singleton)
	c := mustCompile(t, b)
	ctx := context.Background()

	a := MustGet[*TestService](ctx, c, "svc")
	a2 := MustGet[*TestService](ctx, c, "svc")
	if a != a2 {
		t.Error("Expected same singleton instance")
	}
}

// TestSingletonConcurrent tests that concurrent resolution builds a singleton once
func TestSingletonConcurrent(t *testing.T) {
	var calls atomic.Int32
	b := NewBuilder()
	b.MustRegister("svc", func() *TestService {
		calls.Add(1)
		return &TestService{}
	}, Singleton)
	c := mustCompile(t, b)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = MustGet[*TestService](context.Background(), c, "svc")
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected constructor to run once, ran %d times", calls.Load())
	}
}

// TestTransientLifetime tests that transients are created per resolution
func TestTransientLifetime(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Transient)
	c := mustCompile(t, b)
	ctx := context.Background()

	if MustGet[*TestService](ctx, c, "svc") == MustGet[*TestService](ctx, c, "svc") {
		t.Error("Expected different transient instances")
	}
}

// TestScopedLifetime tests scoped instances
func TestScopedLifetime(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Scoped)
	c := mustCompile(t, b)
	ctx := context.Background()

	scope1 := c.NewScope()
	scope2 := c.NewScope()

	a := MustGet[*TestService](ctx, scope1, "svc")
	a2 := MustGet[*TestService](ctx, scope1, "svc")
	if a != a2 {
		t.Error("Expected same instance within scope")
	}
	if a == MustGet[*TestService](ctx, scope2, "svc") {
		t.Error("Expected different instances across scopes")
	}

	scope1.Reset()
	if a == MustGet[*TestService](ctx, scope1, "svc") {
		t.Error("Expected a new instance after Reset")
	}
}

// TestScopedOnRootContainer tests that scoped services need a scope
func TestScopedOnRootContainer(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Scoped)
	c := mustCompile(t, b)

	if _, err := c.Get(context.Background(), "svc"); !errors.Is(err, ErrScopedOnRootContainer) {
		t.Errorf("Expected ErrScopedOnRootContainer, got %v", err)
	}
}

// TestScopeResolveWithSingletonAndTransient tests that scopes share singletons
func TestScopeResolveWithSingletonAndTransient(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("single", NewTestDependency, Singleton)
	b.MustRegister("svc", NewTestServiceWithDep, Transient)
	c := mustCompile(t, b)
	ctx := context.Background()

	fromRoot := MustGet[*TestServiceWithDep](ctx, c, "svc")
	fromScope := MustGet[*TestServiceWithDep](ctx, c.NewScope(), "svc")
	if fromRoot == fromScope {
		t.Error("Expected different transient instances")
	}
	if fromRoot.Dep != fromScope.Dep {
		t.Error("Expected shared singleton dependency")
	}
}

// TestCircularDependency tests cycle detection
func TestCircularDependency(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("a", NewCycleA, Transient)
	b.MustRegister("b", NewCycleB, Transient)
	c := mustCompile(t, b)

	if _, err := c.Get(context.Background(), "a"); !errors.Is(err, ErrResolveCircularDependency) {
		t.Errorf("Expected ErrResolveCircularDependency, got %v", err)
	}
}

// TestConstructorError tests that constructor errors are wrapped
func TestConstructorError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder()
	b.MustRegister("svc", func() (*TestService, error) { return nil, boom }, Transient)
	c := mustCompile(t, b)

	_, err := c.Get(context.Background(), "svc")
	if !errors.Is(err, ErrCreateInstanceFailed) {
		t.Errorf("Expected ErrCreateInstanceFailed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected constructor error to be kept, got %v", err)
	}
}

// TestContextInjection tests that context parameters receive the caller's context
func TestContextInjection(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestContextService, Transient)
	c := mustCompile(t, b)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	svc := MustGet[*TestContextService](ctx, c, "svc")
	if svc.Request != "req-1" {
		t.Errorf("Expected 'req-1', got '%s'", svc.Request)
	}
}

// TestRegisterWithInterfaceReturnType tests constructors returning interfaces
func TestRegisterWithInterfaceReturnType(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("impl", func() ITestInterface { return &TestImpl{Value: "iface"} }, Singleton)
	c := mustCompile(t, b)

	var result ITestInterface
	if err := c.Resolve(context.Background(), &result); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.GetValue() != "iface" {
		t.Errorf("Expected 'iface', got '%s'", result.GetValue())
	}
}

// TestAutowireInterface tests binding an interface type to a service id
func TestAutowireInterface(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("impl", NewTestImpl, Singleton)
	if err := b.Autowire((*ITestInterface)(nil), "impl"); err != nil {
		t.Fatalf("Autowire failed: %v", err)
	}
	c := mustCompile(t, b)

	var result ITestInterface
	if err := c.Resolve(context.Background(), &result); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.GetValue() != "impl" {
		t.Errorf("Expected 'impl', got '%s'", result.GetValue())
	}
}

// TestAutowireInvalidType tests that Autowire needs a nil pointer
func TestAutowireInvalidType(t *testing.T) {
	b := NewBuilder()
	if err := b.Autowire("not a pointer", "svc"); !errors.Is(err, ErrInvalidInterfaceType) {
		t.Errorf("Expected ErrInvalidInterfaceType, got %v", err)
	}
}

// TestPrivateService tests that private services are injectable but not retrievable
func TestPrivateService(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("dep", NewTestDependency, Singleton).SetPublic(false)
	b.MustRegister("svc", NewTestServiceWithDep, Singleton)
	c := mustCompile(t, b)
	ctx := context.Background()

	if _, err := c.Get(ctx, "dep"); !errors.Is(err, ErrServiceNotPublic) {
		t.Errorf("Expected ErrServiceNotPublic, got %v", err)
	}
	if svc := MustGet[*TestServiceWithDep](ctx, c, "svc"); svc.Dep == nil {
		t.Error("Expected private dependency to be injected")
	}
}

// TestArgumentOverrides tests literal and reference arguments
func TestArgumentOverrides(t *testing.T) {
	b := NewBuilder()
	b.MustRegisterInstance("first", &TestDependency{Name: "first"})
	b.MustRegisterInstance("second", &TestDependency{Name: "second"})
	b.MustRegister("svc", NewTestServiceWithDep, Transient).SetArgument(0, Reference("second"))
	b.MustRegister("named", func(name string) *TestService { return &TestService{Value: name} }, Transient).
		SetArgument(0, "literal")
	c := mustCompile(t, b)
	ctx := context.Background()

	if got := MustGet[*TestServiceWithDep](ctx, c, "svc").Dep.Name; got != "second" {
		t.Errorf("Expected 'second', got '%s'", got)
	}
	if got := MustGet[*TestService](ctx, c, "named").Value; got != "literal" {
		t.Errorf("Expected 'literal', got '%s'", got)
	}
}

// TestVariadicConstructor tests that an unset variadic parameter is left empty
func TestVariadicConstructor(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", func(names ...string) *TestService {
		return &TestService{Value: string(rune('0' + len(names)))}
	}, Transient)
	c := mustCompile(t, b)

	if got := MustGet[*TestService](context.Background(), c, "svc").Value; got != "0" {
		t.Errorf("Expected '0', got '%s'", got)
	}
}

type testFactory struct {
	prefix string
}

func (f *testFactory) Create(ctx context.Context, name string) (*TestService, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}
	return &TestService{Value: f.prefix + name}, nil
}

// TestFactoryDefinition tests services created by another service's method
func TestFactoryDefinition(t *testing.T) {
	b := NewBuilder()
	b.MustRegisterInstance("factory", &testFactory{prefix: "made-"})
	b.SetDefinition("product", NewFactoryDefinition(
		TypeOf[*TestService](), Factory{Service: "factory", Method: "Create"}, "widget"))
	b.SetDefinition("broken", NewFactoryDefinition(
		TypeOf[*TestService](), Factory{Service: "factory", Method: "Missing"}))
	c := mustCompile(t, b)
	ctx := context.Background()

	if got := MustGet[*TestService](ctx, c, "product").Value; got != "made-widget" {
		t.Errorf("Expected 'made-widget', got '%s'", got)
	}
	if _, err := c.Get(ctx, "broken"); !errors.Is(err, ErrFactoryMethod) {
		t.Errorf("Expected ErrFactoryMethod, got %v", err)
	}
}

// TestGetWithWrongType tests generic retrieval with a mismatched type
func TestGetWithWrongType(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Singleton)
	c := mustCompile(t, b)

	if _, err := Get[*TestDependency](context.Background(), c, "svc"); !errors.Is(err, ErrTypeConvertFailed) {
		t.Errorf("Expected ErrTypeConvertFailed, got %v", err)
	}
}

// TestMustGetPanic tests that MustGet panics on unknown services
func TestMustGetPanic(t *testing.T) {
	c := mustCompile(t, NewBuilder())
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustGet to panic")
		}
	}()
	MustGet[*TestService](context.Background(), c, "missing")
}

// TestResolveWithInvalidPointer tests Resolve argument validation
func TestResolveWithInvalidPointer(t *testing.T) {
	c := mustCompile(t, NewBuilder())
	var result *TestService
	if err := c.Resolve(context.Background(), result); !errors.Is(err, ErrInvalidOutPtr) {
		t.Errorf("Expected ErrInvalidOutPtr, got %v", err)
	}
}

// TestAlias tests resolution through an alias
func TestAlias(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("svc", NewTestService, Singleton)
	b.SetAlias("alias", "svc")
	c := mustCompile(t, b)
	ctx := context.Background()

	if !c.Has("alias") {
		t.Error("Expected alias to be found")
	}
	if MustGet[*TestService](ctx, c, "alias") != MustGet[*TestService](ctx, c, "svc") {
		t.Error("Expected alias to resolve the same singleton")
	}
}
