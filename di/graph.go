package di

import (
	"fmt"
	"maps"
	"slices"
)

// DefinitionInfo 定义快照，供导出和调试
type DefinitionInfo struct {
	ID        string                         `json:"id" yaml:"id"`
	Class     string                         `json:"class,omitempty" yaml:"class,omitempty"`
	Lifetime  string                         `json:"lifetime" yaml:"lifetime"`
	Public    bool                           `json:"public" yaml:"public"`
	Factory   string                         `json:"factory,omitempty" yaml:"factory,omitempty"`
	Arguments map[int]string                 `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Tags      map[string][]map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Graph 编译期容器快照
type Graph struct {
	Definitions []DefinitionInfo  `json:"definitions" yaml:"definitions"`
	Aliases     map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Find 按ID查找
func (g Graph) Find(id string) (DefinitionInfo, bool) {
	for _, info := range g.Definitions {
		if info.ID == id {
			return info, true
		}
	}
	return DefinitionInfo{}, false
}

// Graph 导出当前定义快照（按ID排序）
func (b *Builder) Graph() Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()

	g := Graph{
		Definitions: make([]DefinitionInfo, 0, len(b.definitions)),
	}
	if len(b.aliases) > 0 {
		g.Aliases = maps.Clone(b.aliases)
	}
	for _, id := range slices.Sorted(maps.Keys(b.definitions)) {
		def := b.definitions[id]
		info := DefinitionInfo{
			ID:       id,
			Lifetime: def.scope.String(),
			Public:   def.public,
		}
		if def.class != nil {
			info.Class = def.class.String()
		}
		if def.factory != nil {
			info.Factory = def.factory.String()
		}
		if len(def.args) > 0 {
			info.Arguments = make(map[int]string, len(def.args))
			for i, arg := range def.args {
				switch v := arg.(type) {
				case Reference:
					info.Arguments[i] = "@" + string(v)
				case string, bool, int, int64, float64:
					info.Arguments[i] = fmt.Sprintf("%v", v)
				default:
					info.Arguments[i] = fmt.Sprintf("%T", v)
				}
			}
		}
		if len(def.tags) > 0 {
			info.Tags = make(map[string][]map[string]string, len(def.tags))
			for _, name := range def.TagNames() {
				info.Tags[name] = def.Tags(name)
			}
		}
		g.Definitions = append(g.Definitions, info)
	}
	return g
}
