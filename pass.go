package dedicated

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/Ngone6325/dedicated/di"
	"github.com/Ngone6325/dedicated/orm"
)

var (
	connectionType    = di.TypeOf[orm.Connection]()
	entityManagerType = di.TypeOf[orm.EntityManager]()
	registryType      = di.TypeOf[*Registry]()

	// 构造函数中会被改写的参数类型
	sessionTypes  = []reflect.Type{entityManagerType, di.TypeOf[*orm.Manager]()}
	registryTypes = []reflect.Type{di.TypeOf[ManagerRegistry](), registryType}
)

// ChannelPass 编译期处理：发现通道请求，为每个通道生成一次连接/实体管理器/注册表定义，
// 再改写请求方构造函数的参数。重复执行结果不变
type ChannelPass struct {
	naming Naming
	logger *zap.Logger
}

var _ di.Pass = (*ChannelPass)(nil)

func NewChannelPass(naming Naming, logger *zap.Logger) *ChannelPass {
	return &ChannelPass{naming: naming, logger: orDefault(logger)}
}

type channelRequest struct {
	consumer string
	channel  string
}

func (p *ChannelPass) Process(b *di.Builder) error {
	requests, err := p.discover(b)
	if err != nil {
		return err
	}

	var channels []string
	for _, req := range requests {
		if !slices.Contains(channels, req.channel) {
			channels = append(channels, req.channel)
		}
	}
	for _, channel := range channels {
		if err := p.Materialize(b, channel); err != nil {
			return err
		}
	}

	for _, req := range requests {
		p.rewrite(b, req.consumer, req.channel)
	}
	return nil
}

// discover 把类型上的声明补成标签，再收集全部请求；任一请求缺少通道则整体失败
func (p *ChannelPass) discover(b *di.Builder) ([]channelRequest, error) {
	tag := p.naming.Tag()
	for _, id := range b.IDs() {
		def, _ := b.Definition(id)
		for _, req := range ChannelsOf(def.Class()) {
			if req.Channel != "" && hasChannelTag(def, tag, req.Channel) {
				continue
			}
			def.AddTag(tag, map[string]string{ChannelAttribute: req.Channel})
		}
	}

	tagged := b.FindTaggedServiceIDs(tag)
	var requests []channelRequest
	for _, id := range slices.Sorted(maps.Keys(tagged)) {
		for _, attrs := range tagged[id] {
			channel := attrs[ChannelAttribute]
			if channel == "" {
				return nil, &MissingChannelError{ServiceID: id, Tag: tag}
			}
			requests = append(requests, channelRequest{consumer: id, channel: channel})
		}
	}
	return requests, nil
}

func hasChannelTag(def *di.Definition, tag, channel string) bool {
	for _, attrs := range def.Tags(tag) {
		if attrs[ChannelAttribute] == channel {
			return true
		}
	}
	return false
}

// Materialize 为通道生成连接、实体管理器和注册表定义，实体管理器已存在时不做任何处理
func (p *ChannelPass) Materialize(b *di.Builder, channel string) error {
	n := p.naming
	emID := n.EntityManagerID(channel)
	if b.HasDefinition(emID) || b.HasAlias(emID) {
		return nil
	}
	if err := p.ensureConnection(b, channel); err != nil {
		return err
	}

	b.SetDefinition(emID, di.NewFactoryDefinition(entityManagerType,
		di.Factory{Service: n.EntityManagerFactoryID(), Method: "CreateEntityManager"}, channel).
		SetPublic(false).
		AddTag(n.EntityManagerTag(), map[string]string{ChannelAttribute: channel}))

	registryID := n.RegistryID(channel)
	if !b.HasDefinition(registryID) && !b.HasAlias(registryID) {
		b.SetDefinition(registryID, di.NewFactoryDefinition(registryType,
			di.Factory{Service: n.RegistryFactoryID(), Method: "CreateRegistry"}, channel).
			SetPublic(false))
	}

	p.logger.Debug("materialized dedicated channel",
		zap.String("channel", channel),
		zap.String("entity_manager", emID),
		zap.String("registry", registryID))
	return nil
}

func (p *ChannelPass) ensureConnection(b *di.Builder, channel string) error {
	n := p.naming
	connID := n.ConnectionID(channel)
	if b.HasDefinition(connID) || b.HasAlias(connID) {
		return nil
	}
	factoryID := n.ConnectionFactoryID()
	if !b.HasDefinition(factoryID) && !b.HasAlias(factoryID) {
		return &ProviderMissingError{Channel: channel, FactoryID: factoryID}
	}
	b.SetDefinition(connID, di.NewFactoryDefinition(connectionType,
		di.Factory{Service: factoryID, Method: "CreateConnection"}, channel).
		SetPublic(false).
		AddTag(n.ConnectionTag(), map[string]string{ChannelAttribute: channel}))
	return nil
}

// rewrite 把构造函数中实体管理器/注册表类型的参数指向通道服务；
// 没有构造函数（实例、工厂定义或类型未知）的服务只记录日志后跳过
func (p *ChannelPass) rewrite(b *di.Builder, id, channel string) {
	def, ok := b.Definition(id)
	if !ok || !def.HasConstructor() {
		p.logger.Debug("skipped dedicated argument rewrite",
			zap.String("service", id),
			zap.String("channel", channel))
		return
	}
	for i, pt := range def.ParamTypes() {
		switch {
		case slices.Contains(sessionTypes, pt):
			def.SetArgument(i, di.Reference(p.naming.EntityManagerID(channel)))
		case slices.Contains(registryTypes, pt):
			def.SetArgument(i, di.Reference(p.naming.RegistryID(channel)))
		}
	}
}

func (p *ChannelPass) String() string {
	return fmt.Sprintf("ChannelPass(%s)", p.naming.Tag())
}
