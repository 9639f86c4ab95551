package dedicated

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ngone6325/dedicated/scope"
)

// ManagerRegistryFactory 专用注册表工厂，按（作用域，通道）缓存。
// 注册表不持有资源，移除时无需关闭
type ManagerRegistryFactory struct {
	managers *EntityManagerFactory
	provider ConnectionProvider
	naming   Naming
	cache    *scopedCache[*Registry]
}

func NewManagerRegistryFactory(managers *EntityManagerFactory, provider ConnectionProvider, sc scope.Context, naming Naming, logger *zap.Logger) *ManagerRegistryFactory {
	return &ManagerRegistryFactory{
		managers: managers,
		provider: provider,
		naming:   naming,
		cache:    newScopedCache[*Registry]("manager registry", sc, logger, nil),
	}
}

// CreateRegistry 获取通道的注册表，当前作用域内已创建则直接返回
func (f *ManagerRegistryFactory) CreateRegistry(ctx context.Context, channel string) (*Registry, error) {
	return f.cache.get(ctx, channel, func(context.Context) (*Registry, error) {
		return NewRegistry(channel, f.naming, f.managers, f.provider), nil
	})
}

func (f *ManagerRegistryFactory) CloseAll(scopeID ...string) error {
	return f.cache.closeAll(scopeID...)
}

func (f *ManagerRegistryFactory) CloseCurrentScope(ctx context.Context) error {
	return f.cache.closeCurrentScope(ctx)
}

// Registries 当前缓存的拷贝，键规则同 EntityManagerFactory.EntityManagers
func (f *ManagerRegistryFactory) Registries() map[string]*Registry {
	return f.cache.snapshot()
}
