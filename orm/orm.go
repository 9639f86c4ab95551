// Package orm 会话层边界：连接与实体管理器的能力接口，以及基于标识映射的默认实现。
package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var (
	ErrManagerClosed = errors.New("entity manager is closed")
	ErrNilConnection = errors.New("entity manager requires a connection")
)

// Connection 原始连接能力
type Connection interface {
	Name() string
	DB() *sql.DB
	PingContext(ctx context.Context) error
}

// EntityManager 会话能力：绑定一个连接，持有本会话的标识映射
type EntityManager interface {
	Connection() Connection
	Configuration() *Configuration
	IsOpen() bool
	Close() error

	Persist(key string, entity any) error
	Find(key string) (any, bool)
	Detach(key string)
	Clear()
}

// Configuration 会话配置：同一进程内的会话共享同一份配置
type Configuration struct {
	IdentityTTL     time.Duration // 标识映射条目过期时间，0 表示不过期
	CleanupInterval time.Duration // 过期条目清理间隔，0 表示不清理
	ProxyNamespace  string
}

// DefaultConfiguration 默认配置
func DefaultConfiguration() *Configuration {
	return &Configuration{
		IdentityTTL:     gocache.NoExpiration,
		CleanupInterval: 0,
		ProxyNamespace:  "Proxies",
	}
}

// Manager EntityManager 默认实现
type Manager struct {
	conn     Connection
	config   *Configuration
	identity *gocache.Cache
	closed   atomic.Bool
}

var _ EntityManager = (*Manager)(nil)

// NewManager 创建实体管理器；config 为空时使用默认配置
func NewManager(conn Connection, config *Configuration) (*Manager, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	if config == nil {
		config = DefaultConfiguration()
	}
	ttl := config.IdentityTTL
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	return &Manager{
		conn:     conn,
		config:   config,
		identity: gocache.New(ttl, config.CleanupInterval),
	}, nil
}

func (m *Manager) Connection() Connection { return m.conn }

func (m *Manager) Configuration() *Configuration { return m.config }

func (m *Manager) IsOpen() bool { return !m.closed.Load() }

// Close 关闭会话并清空标识映射；连接归连接提供方所有，这里不关闭。重复关闭无副作用
func (m *Manager) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.identity.Flush()
	}
	return nil
}

func (m *Manager) Persist(key string, entity any) error {
	if m.closed.Load() {
		return fmt.Errorf("%w，连接：%s", ErrManagerClosed, m.conn.Name())
	}
	m.identity.SetDefault(key, entity)
	return nil
}

func (m *Manager) Find(key string) (any, bool) {
	if m.closed.Load() {
		return nil, false
	}
	return m.identity.Get(key)
}

func (m *Manager) Detach(key string) { m.identity.Delete(key) }

func (m *Manager) Clear() { m.identity.Flush() }

// ManagedCount 当前标识映射中的条目数
func (m *Manager) ManagedCount() int { return m.identity.ItemCount() }
