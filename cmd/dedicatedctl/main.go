// Command dedicatedctl 查看与检查专用实体管理器的服务装配。
package main

import (
	"context"
	"os"
)

// 构建信息，通过 ldflags 注入
var version = "dev"

func main() {
	rootCmd.Version = version
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
