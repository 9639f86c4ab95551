// Package connection 专用连接提供方：按通道打开并缓存连接池。
// postgres:// 与 postgresql:// 使用 pgx，其余 DSN 使用 SQLite。
package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Ngone6325/dedicated/config"
	"github.com/Ngone6325/dedicated/orm"
)

const (
	// database/sql 驱动名
	SQLiteDriver   = "sqlite3"
	PostgresDriver = "pgx"

	tracerName = "github.com/Ngone6325/dedicated/connection"
)

var (
	ErrEmptyChannel  = errors.New("connection channel must not be empty")
	ErrFactoryClosed = errors.New("connection factory is closed")
)

// Conn 单个通道的连接
type Conn struct {
	name string
	db   *sql.DB
}

var _ orm.Connection = (*Conn)(nil)

func (c *Conn) Name() string { return c.name }

func (c *Conn) DB() *sql.DB { return c.db }

func (c *Conn) PingContext(ctx context.Context) error { return c.db.PingContext(ctx) }

// Factory 连接工厂：每个通道一个连接池，首次请求时打开
type Factory struct {
	cfg    config.Config
	logger *zap.Logger

	mu     sync.Mutex
	conns  map[string]*Conn
	closed bool
}

// NewFactory 创建连接工厂；logger 为空时不输出日志
func NewFactory(cfg config.Config, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[string]*Conn),
	}
}

// CreateConnection 获取通道连接，已打开则直接返回
func (f *Factory) CreateConnection(ctx context.Context, channel string) (orm.Connection, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "dedicated.connection.create")
	defer span.End()
	span.SetAttributes(attribute.String("dedicated.channel", channel))

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		span.SetStatus(codes.Error, ErrFactoryClosed.Error())
		return nil, ErrFactoryClosed
	}
	if conn, ok := f.conns[channel]; ok {
		span.SetAttributes(attribute.Bool("dedicated.cached", true))
		return conn, nil
	}

	cc := f.cfg.Channel(channel)
	driver := DriverFor(cc.DSN)
	span.SetAttributes(attribute.String("db.system", driver))
	db, err := sql.Open(driver, cc.DSN)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("打开通道%s的连接失败：%w", channel, err)
	}
	if cc.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cc.MaxOpenConns)
	}
	if cc.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cc.MaxIdleConns)
	}
	if cc.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cc.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("连接通道%s失败：%w", channel, err)
	}

	conn := &Conn{name: channel, db: db}
	f.conns[channel] = conn
	f.logger.Debug("opened dedicated connection", zap.String("channel", channel), zap.String("driver", driver))
	return conn, nil
}

// DriverFor 按 DSN 选择驱动
func DriverFor(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return PostgresDriver
	}
	return SQLiteDriver
}

// Channels 已打开连接的通道
func (f *Factory) Channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.conns))
}

// Close 关闭所有连接池，之后不再创建连接
func (f *Factory) Close() error {
	f.mu.Lock()
	conns := f.conns
	f.conns = make(map[string]*Conn)
	f.closed = true
	f.mu.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(conns)) {
		if err := conns[name].db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭通道%s的连接失败：%w", name, err))
		}
		f.logger.Debug("closed dedicated connection", zap.String("channel", name))
	}
	return errors.Join(errs...)
}
