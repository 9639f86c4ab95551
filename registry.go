package dedicated

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ngone6325/dedicated/orm"
)

// RegistryName 专用注册表名称
const RegistryName = "Dedicated"

// ConnectionRegistry 连接注册表能力
type ConnectionRegistry interface {
	DefaultConnectionName() string
	Connection(ctx context.Context, name string) (orm.Connection, error)
	Connections(ctx context.Context) (map[string]orm.Connection, error)
	ConnectionNames() map[string]string
}

// ManagerRegistry 实体管理器注册表能力
type ManagerRegistry interface {
	ConnectionRegistry
	DefaultManagerName() string
	Manager(ctx context.Context, name string) (orm.EntityManager, error)
	Managers(ctx context.Context) (map[string]orm.EntityManager, error)
	ResetManager(ctx context.Context, name string) (orm.EntityManager, error)
	ManagerNames() map[string]string
	AliasNamespace(alias string) (string, error)
}

// Registry 单通道注册表：只暴露一个实体管理器和一个连接，名称都是通道本身。
// 实例由工厂提供，注册表本身不缓存
type Registry struct {
	channel  string
	naming   Naming
	managers *EntityManagerFactory
	provider ConnectionProvider
}

var _ ManagerRegistry = (*Registry)(nil)

func NewRegistry(channel string, naming Naming, managers *EntityManagerFactory, provider ConnectionProvider) *Registry {
	return &Registry{
		channel:  channel,
		naming:   naming,
		managers: managers,
		provider: provider,
	}
}

func (r *Registry) Name() string { return RegistryName }

func (r *Registry) Channel() string { return r.channel }

func (r *Registry) DefaultManagerName() string { return r.channel }

func (r *Registry) DefaultConnectionName() string { return r.channel }

func (r *Registry) ManagerNames() map[string]string {
	return map[string]string{r.channel: r.naming.EntityManagerID(r.channel)}
}

func (r *Registry) ConnectionNames() map[string]string {
	return map[string]string{r.channel: r.naming.ConnectionID(r.channel)}
}

// Manager name 可为空、通道名或实体管理器服务ID
func (r *Registry) Manager(ctx context.Context, name string) (orm.EntityManager, error) {
	id, err := r.serviceID(name, r.ManagerNames(), "entity manager")
	if err != nil {
		return nil, err
	}
	svc, err := r.service(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.(orm.EntityManager), nil
}

// Connection 每次都交给连接提供方，由其决定是否复用
func (r *Registry) Connection(ctx context.Context, name string) (orm.Connection, error) {
	id, err := r.serviceID(name, r.ConnectionNames(), "connection")
	if err != nil {
		return nil, err
	}
	svc, err := r.service(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.(orm.Connection), nil
}

func (r *Registry) Managers(ctx context.Context) (map[string]orm.EntityManager, error) {
	em, err := r.Manager(ctx, "")
	if err != nil {
		return nil, err
	}
	return map[string]orm.EntityManager{r.channel: em}, nil
}

func (r *Registry) Connections(ctx context.Context) (map[string]orm.Connection, error) {
	conn, err := r.Connection(ctx, "")
	if err != nil {
		return nil, err
	}
	return map[string]orm.Connection{r.channel: conn}, nil
}

// ResetManager 关闭工厂中所有作用域的实体管理器，再返回一个新的
func (r *Registry) ResetManager(ctx context.Context, name string) (orm.EntityManager, error) {
	id, err := r.serviceID(name, r.ManagerNames(), "entity manager")
	if err != nil {
		return nil, err
	}
	if err := r.resetService(ctx, id); err != nil {
		return nil, err
	}
	return r.Manager(ctx, "")
}

// AliasNamespace 专用注册表不支持实体命名空间别名
func (r *Registry) AliasNamespace(alias string) (string, error) {
	return "", fmt.Errorf("%w，通道%s的注册表不支持命名空间别名：%s", ErrInvalidArgument, r.channel, alias)
}

func (r *Registry) serviceID(name string, names map[string]string, kind string) (string, error) {
	if name == "" {
		return names[r.channel], nil
	}
	if id, ok := names[name]; ok {
		return id, nil
	}
	for _, id := range names {
		if id == name {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w，通道%s中不存在名为%s的%s", ErrInvalidArgument, r.channel, name, kind)
}

// service 按服务ID后缀分派到对应工厂
func (r *Registry) service(ctx context.Context, id string) (any, error) {
	switch {
	case strings.HasSuffix(id, "_entity_manager"):
		return r.managers.CreateEntityManager(ctx, r.channel)
	case strings.HasSuffix(id, "_connection"):
		return r.provider.CreateConnection(ctx, r.channel)
	default:
		return nil, fmt.Errorf("%w，未知的服务：%s", ErrInvalidArgument, id)
	}
}

// resetService 连接由提供方持有，重置连接不做任何处理
func (r *Registry) resetService(_ context.Context, id string) error {
	switch {
	case strings.HasSuffix(id, "_entity_manager"):
		return r.managers.CloseAll()
	case strings.HasSuffix(id, "_connection"):
		return nil
	default:
		return fmt.Errorf("%w，未知的服务：%s", ErrInvalidArgument, id)
	}
}
