package dedicated

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger 包级日志，默认不输出
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger 设置包级日志，需在注册服务之前调用
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

func orDefault(l *zap.Logger) *zap.Logger {
	if l == nil {
		return Logger()
	}
	return l
}
