// Package dedicated 为声明了通道的服务提供独立的实体管理器、连接与注册表，
// 代替共享的默认实体管理器。
//
// 服务通过空白字段声明通道（可重复，每个通道一个字段）：
//
//	type OrderService struct {
//		_  dedicated.WithDedicatedEntityManager `channel:"order"`
//		em orm.EntityManager
//	}
//
//	func NewOrderService(em orm.EntityManager) *OrderService { ... }
//
// 编译期 ChannelPass 为每个通道生成一次连接、实体管理器和注册表定义，
// 并把构造函数中实体管理器/注册表类型的参数改写为该通道的服务引用。
// 运行时 EntityManagerFactory 与 ManagerRegistryFactory 按（作用域，通道）缓存实例。
package dedicated

import "reflect"

// WithDedicatedEntityManager 通道声明标记，通道名写在 channel 结构体标签中
type WithDedicatedEntityManager struct{}

// ChannelAttribute 标签/结构体标签中的通道属性名
const ChannelAttribute = "channel"

// ResourceRequest 一次通道资源请求
type ResourceRequest struct {
	Channel string
}

var markerType = reflect.TypeOf(WithDedicatedEntityManager{})

// ChannelsOf 按字段顺序读取类型上的通道声明，支持结构体和结构体指针。
// 未填写 channel 的声明以空通道返回，由调用方决定如何报错
func ChannelsOf(t reflect.Type) []ResourceRequest {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var requests []ResourceRequest
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type != markerType {
			continue
		}
		channel, _ := field.Tag.Lookup(ChannelAttribute)
		requests = append(requests, ResourceRequest{Channel: channel})
	}
	return requests
}
