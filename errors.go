package dedicated

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConfiguration   = errors.New("dedicated entity manager configuration error")
)

// MissingChannelError 服务带有专用实体管理器标签但没有 channel 属性
type MissingChannelError struct {
	ServiceID string
	Tag       string
}

func (e *MissingChannelError) Error() string {
	return fmt.Sprintf("service %q has a %q tag without a \"channel\" attribute", e.ServiceID, e.Tag)
}

func (e *MissingChannelError) Unwrap() error { return ErrInvalidArgument }

// ProviderMissingError 需要创建专用连接，但连接提供方没有在编译期注册
type ProviderMissingError struct {
	Channel   string
	FactoryID string
}

func (e *ProviderMissingError) Error() string {
	return fmt.Sprintf("cannot create dedicated connection for channel %q: connection provider %q is required but not registered",
		e.Channel, e.FactoryID)
}

func (e *ProviderMissingError) Unwrap() error { return ErrConfiguration }
