package dedicated

// DefaultNamespace 服务ID命名空间，与现有部署保持一致
const DefaultNamespace = "doctrine"

// Naming 合成服务ID的命名规则
type Naming struct {
	Namespace string
}

// NewNaming namespace 为空时使用 DefaultNamespace
func NewNaming(namespace string) Naming {
	return Naming{Namespace: namespace}
}

func (n Naming) ns() string {
	if n.Namespace == "" {
		return DefaultNamespace
	}
	return n.Namespace
}

// EntityManagerID <ns>.orm.<channel>_entity_manager
func (n Naming) EntityManagerID(channel string) string {
	return n.ns() + ".orm." + channel + "_entity_manager"
}

// ConnectionID <ns>.dbal.<channel>_connection
func (n Naming) ConnectionID(channel string) string {
	return n.ns() + ".dbal." + channel + "_connection"
}

// RegistryID <ns>.dedicated_registry.<channel>
func (n Naming) RegistryID(channel string) string {
	return n.ns() + ".dedicated_registry." + channel
}

func (n Naming) DefaultEntityManagerID() string { return n.EntityManagerID("default") }

func (n Naming) EntityManagerFactoryID() string {
	return n.ns() + "_dedicated_entity_manager.factory"
}

func (n Naming) RegistryFactoryID() string {
	return n.ns() + "_dedicated_manager_registry.factory"
}

func (n Naming) ConnectionFactoryID() string {
	return n.ns() + "_dedicated_connection.factory"
}

// Tag 声明专用实体管理器的标签名
func (n Naming) Tag() string { return n.ns() + ".dedicated_entity_manager" }

func (n Naming) EntityManagerTag() string { return n.ns() + ".entity_manager" }

func (n Naming) ConnectionTag() string { return n.ns() + ".connection" }
