package dedicated

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ngone6325/dedicated/orm"
	"github.com/Ngone6325/dedicated/scope"
)

// ConnectionProvider 按通道创建专用连接
type ConnectionProvider interface {
	CreateConnection(ctx context.Context, channel string) (orm.Connection, error)
}

// EntityManagerFactory 专用实体管理器工厂，按（作用域，通道）缓存。
// 新会话使用默认实体管理器的配置，连接由 ConnectionProvider 提供
type EntityManagerFactory struct {
	defaultManager orm.EntityManager
	provider       ConnectionProvider
	cache          *scopedCache[orm.EntityManager]
}

// NewEntityManagerFactory sc 为空时按进程级作用域处理
func NewEntityManagerFactory(defaultManager orm.EntityManager, provider ConnectionProvider, sc scope.Context, logger *zap.Logger) *EntityManagerFactory {
	return &EntityManagerFactory{
		defaultManager: defaultManager,
		provider:       provider,
		cache: newScopedCache("entity manager", sc, logger, func(em orm.EntityManager) error {
			return em.Close()
		}),
	}
}

// CreateEntityManager 获取通道的实体管理器，当前作用域内已创建则直接返回。
// 连接提供方的错误原样返回，不会写入缓存
func (f *EntityManagerFactory) CreateEntityManager(ctx context.Context, channel string) (orm.EntityManager, error) {
	return f.cache.get(ctx, channel, func(ctx context.Context) (orm.EntityManager, error) {
		conn, err := f.provider.CreateConnection(ctx, channel)
		if err != nil {
			return nil, err
		}
		em, err := orm.NewManager(conn, f.configuration())
		if err != nil {
			return nil, err
		}
		return em, nil
	})
}

func (f *EntityManagerFactory) configuration() *orm.Configuration {
	if f.defaultManager == nil {
		return orm.DefaultConfiguration()
	}
	return f.defaultManager.Configuration()
}

// CloseAll 关闭并移除实体管理器；传入 scopeID 时只处理该作用域
func (f *EntityManagerFactory) CloseAll(scopeID ...string) error {
	return f.cache.closeAll(scopeID...)
}

// CloseCurrentScope 协作式调度下关闭当前作用域的实体管理器，否则关闭全部
func (f *EntityManagerFactory) CloseCurrentScope(ctx context.Context) error {
	return f.cache.closeCurrentScope(ctx)
}

// EntityManagers 当前缓存的拷贝，键为 "作用域:通道"，非协作式调度下为通道
func (f *EntityManagerFactory) EntityManagers() map[string]orm.EntityManager {
	return f.cache.snapshot()
}
