// Package config 专用实体管理器的配置：命名空间、会话配置与各通道的数据库连接。
package config

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Ngone6325/dedicated/tracing"
)

const (
	// EnvPrefix 全局配置的环境变量前缀，例如 DEDICATED_NAMESPACE
	EnvPrefix = "DEDICATED"
	// DefaultNamespace 服务ID命名空间
	DefaultNamespace = "doctrine"
)

// ChannelConfig 单个通道的数据库配置
type ChannelConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SessionConfig 会话配置，所有专用实体管理器共享
type SessionConfig struct {
	IdentityTTL     time.Duration `mapstructure:"identity_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	ProxyNamespace  string        `mapstructure:"proxy_namespace"`
}

// Config 顶层配置
type Config struct {
	Namespace string                   `mapstructure:"namespace"`
	Coroutine bool                     `mapstructure:"coroutine"` // 是否按任务隔离作用域
	DataDir   string                   `mapstructure:"data_dir"`  // 未配置 DSN 的通道在此目录下使用 <channel>.db
	Debug     bool                     `mapstructure:"debug"`
	Session   SessionConfig            `mapstructure:"session"`
	Channels  map[string]ChannelConfig `mapstructure:"channels"`
	Tracing   tracing.Config           `mapstructure:"tracing"`

	env *viper.Viper
}

// Defaults 默认配置
func Defaults() Config {
	return Config{
		Namespace: DefaultNamespace,
		DataDir:   ".",
		Session: SessionConfig{
			ProxyNamespace: "Proxies",
		},
		Channels: map[string]ChannelConfig{},
		Tracing:  tracing.DefaultConfig(),
	}
}

// Load 读取配置文件（path 为空时只使用默认值和环境变量）
func Load(path string) (Config, error) {
	v := viper.New()
	defaults := Defaults()
	v.SetDefault("namespace", defaults.Namespace)
	v.SetDefault("coroutine", defaults.Coroutine)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("session.proxy_namespace", defaults.Session.ProxyNamespace)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("读取配置文件%s失败：%w", path, err)
			}
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("解析配置失败：%w", err)
	}
	if err := cfg.Tracing.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Channels == nil {
		cfg.Channels = map[string]ChannelConfig{}
	}
	cfg.env = newEnv()
	return cfg, nil
}

func newEnv() *viper.Viper {
	env := viper.New()
	env.AutomaticEnv()
	return env
}

// Channel 通道配置，DSN 优先级：环境变量 <CHANNEL>_DB_DSN > 配置文件 > data_dir/<channel>.db
func (c Config) Channel(channel string) ChannelConfig {
	cc := c.Channels[channel]
	env := c.env
	if env == nil {
		env = newEnv()
	}
	if dsn := env.GetString(EnvKey(channel, "DSN")); dsn != "" {
		cc.DSN = dsn
	}
	if cc.DSN == "" {
		dir := c.DataDir
		if dir == "" {
			dir = "."
		}
		cc.DSN = "file:" + filepath.Join(dir, channel+".db")
	}
	return cc
}

// EnvKey 通道环境变量名，例如 EnvKey("order", "DSN") == "ORDER_DB_DSN"
func EnvKey(channel, field string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(channel))
	return name + "_DB_" + strings.ToUpper(field)
}

// ChannelNames 配置文件中声明的通道（viper 会把键转为小写）
func (c Config) ChannelNames() []string {
	return slices.Sorted(maps.Keys(c.Channels))
}
