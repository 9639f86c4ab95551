package di

import "errors"

// 容器错误定义
var (
	ErrNotFunc                   = errors.New("constructor must be a function")
	ErrNoReturn                  = errors.New("constructor must return (T) or (T, error)")
	ErrEmptyID                   = errors.New("service id must not be empty")
	ErrRegisterDuplicate         = errors.New("service id already registered, duplicate registration prohibited")
	ErrServiceNotRegistered      = errors.New("service not registered, cannot resolve")
	ErrServiceNotPublic          = errors.New("service is private and cannot be retrieved from the container directly")
	ErrCreateInstanceFailed      = errors.New("failed to create service instance")
	ErrResolveCircularDependency = errors.New("circular dependency detected during resolution")
	ErrInvalidInterfaceType      = errors.New("interfaceType must be a nil pointer to interface, e.g. (*IInterface)(nil)")
	ErrInvalidOutPtr             = errors.New("out must be a non-nil pointer type")
	ErrTypeConvertFailed         = errors.New("instance cannot be converted to target type")
	ErrScopedOnRootContainer     = errors.New("scoped lifetime services cannot be retrieved directly from root container, please use Scope")
	ErrNilInstance               = errors.New("registered instance cannot be nil")
	ErrFactoryMethod             = errors.New("factory method not found on factory service")
	ErrBuilderCompiled           = errors.New("builder already compiled, definitions are frozen")
)
