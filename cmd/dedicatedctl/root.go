package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Ngone6325/dedicated"
	"github.com/Ngone6325/dedicated/config"
	"github.com/Ngone6325/dedicated/connection"
	"github.com/Ngone6325/dedicated/di"
	"github.com/Ngone6325/dedicated/scope"
	"github.com/Ngone6325/dedicated/tracing"
)

var (
	cfgFile   string
	namespace string
	debug     bool
	trace     bool
)

var rootCmd = &cobra.Command{
	Use:           "dedicatedctl",
	Short:         "Inspect dedicated channel entity managers",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "service id namespace (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "export connection spans (exporter from config, default stdout)")

	rootCmd.AddCommand(namesCmd, definitionsCmd, pingCmd)
}

// environment 一次命令执行所需的配置、日志与追踪
type environment struct {
	cfg    config.Config
	naming dedicated.Naming
	logger *zap.Logger
	tracer *tracing.Provider
}

func loadEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if trace {
		cfg.Tracing.Enabled = true
	}

	logger, err := newLogger(debug || cfg.Debug)
	if err != nil {
		return nil, err
	}
	dedicated.SetLogger(logger)

	tracer, err := tracing.Setup(ctx, cfg.Tracing, os.Stderr)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:    cfg,
		naming: dedicated.NewNaming(cfg.Namespace),
		logger: logger,
		tracer: tracer,
	}, nil
}

// newLogger 终端下输出可读日志，否则输出 JSON
func newLogger(debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	var (
		logger *zap.Logger
		err    error
	)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logger, err = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		logger, err = zcfg.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("创建日志失败：%w", err)
	}
	return logger, nil
}

func (e *environment) close(ctx context.Context) {
	_ = e.tracer.Shutdown(ctx)
	_ = e.logger.Sync()
}

func (e *environment) scope() scope.Context {
	if e.cfg.Coroutine {
		return scope.NewTasks()
	}
	return scope.NewProcess()
}

// builder 注册连接提供方与专用实体管理器服务
func (e *environment) builder(conns *connection.Factory) (*di.Builder, error) {
	b := di.NewBuilder()
	if err := connection.Register(b, e.naming, conns); err != nil {
		return nil, err
	}
	err := dedicated.Register(b, dedicated.Options{
		Naming: e.naming,
		Scope:  e.scope(),
		Logger: e.logger,
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
