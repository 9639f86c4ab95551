package dedicated

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ngone6325/dedicated/di"
	"github.com/Ngone6325/dedicated/orm"
	"github.com/Ngone6325/dedicated/scope"
)

type stubConn struct{ name string }

func (c *stubConn) Name() string { return c.name }

func (c *stubConn) DB() *sql.DB { return nil }

func (c *stubConn) PingContext(context.Context) error { return nil }

// stubProvider 每个通道返回同一个连接，并记录调用次数
type stubProvider struct {
	calls atomic.Int32

	mu    sync.Mutex
	conns map[string]*stubConn
	err   error
}

func newStubProvider() *stubProvider {
	return &stubProvider{conns: make(map[string]*stubConn)}
}

func (p *stubProvider) CreateConnection(_ context.Context, channel string) (orm.Connection, error) {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	conn, ok := p.conns[channel]
	if !ok {
		conn = &stubConn{name: channel}
		p.conns[channel] = conn
	}
	return conn, nil
}

func (p *stubProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func newDefaultManager(t *testing.T) *orm.Manager {
	t.Helper()
	em, err := orm.NewManager(&stubConn{name: "default"}, &orm.Configuration{ProxyNamespace: "Test\\Proxies"})
	require.NoError(t, err)
	return em
}

// fixture 运行时工厂组合
type fixture struct {
	provider   *stubProvider
	defaultEM  *orm.Manager
	managers   *EntityManagerFactory
	registries *ManagerRegistryFactory
}

func newFixture(t *testing.T, sc scope.Context) *fixture {
	t.Helper()
	provider := newStubProvider()
	defaultEM := newDefaultManager(t)
	managers := NewEntityManagerFactory(defaultEM, provider, sc, nil)
	return &fixture{
		provider:   provider,
		defaultEM:  defaultEM,
		managers:   managers,
		registries: NewManagerRegistryFactory(managers, provider, sc, NewNaming(""), nil),
	}
}

// newBuilder 注册默认实体管理器、连接提供方与专用服务
func newBuilder(t *testing.T, naming Naming, sc scope.Context) (*di.Builder, *stubProvider) {
	t.Helper()
	b := di.NewBuilder()
	provider := newStubProvider()
	require.NoError(t, RegisterDefaultEntityManager(b, naming, newDefaultManager(t)))
	_, err := b.RegisterInstance(naming.ConnectionFactoryID(), provider)
	require.NoError(t, err)
	require.NoError(t, Register(b, Options{Naming: naming, Scope: sc}))
	return b, provider
}
