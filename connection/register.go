package connection

import (
	"github.com/Ngone6325/dedicated"
	"github.com/Ngone6325/dedicated/di"
)

// Register 连接提供方的编译期注册入口：把工厂登记为 <ns>_dedicated_connection.factory，
// 并按 dedicated.ConnectionProvider 类型开放自动装配
func Register(b *di.Builder, naming dedicated.Naming, f *Factory) error {
	id := naming.ConnectionFactoryID()
	if _, err := b.RegisterInstance(id, f); err != nil {
		return err
	}
	return b.Autowire((*dedicated.ConnectionProvider)(nil), id)
}
