package dedicated

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Ngone6325/dedicated/scope"
)

// ScopeKey 缓存键：仅在协作式调度下带作用域标识，否则退化为通道本身
type ScopeKey struct {
	ScopeID string
	Channel string
}

func (k ScopeKey) String() string {
	if k.ScopeID == "" {
		return k.Channel
	}
	return k.ScopeID + ":" + k.Channel
}

func (k ScopeKey) flight() string { return k.ScopeID + "\x00" + k.Channel }

// scopedCache 按（作用域，通道）缓存的实例表，两个工厂共用
type scopedCache[V comparable] struct {
	kind    string
	sc      scope.Context
	logger  *zap.Logger
	closeFn func(V) error // 为空时只移除缓存

	mu    sync.Mutex
	items map[ScopeKey]V
	group singleflight.Group
}

func newScopedCache[V comparable](kind string, sc scope.Context, logger *zap.Logger, closeFn func(V) error) *scopedCache[V] {
	if sc == nil {
		sc = scope.NewProcess()
	}
	return &scopedCache[V]{
		kind:    kind,
		sc:      sc,
		logger:  orDefault(logger),
		closeFn: closeFn,
		items:   make(map[ScopeKey]V),
	}
}

func (c *scopedCache[V]) key(ctx context.Context, channel string) ScopeKey {
	if c.sc.SupportsCoroutine() {
		if id, ok := c.sc.CurrentID(ctx); ok {
			return ScopeKey{ScopeID: id, Channel: channel}
		}
	}
	return ScopeKey{Channel: channel}
}

func (c *scopedCache[V]) lookup(key ScopeKey) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// get 命中直接返回；未命中时同一个键只有一个调用方执行 create
func (c *scopedCache[V]) get(ctx context.Context, channel string, create func(ctx context.Context) (V, error)) (V, error) {
	key := c.key(ctx, channel)
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	if key.ScopeID != "" && c.sc.Ended(ctx) {
		var zero V
		return zero, c.scopeEnded(key)
	}

	res, err, _ := c.group.Do(key.flight(), func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		c.logger.Debug("creating dedicated "+c.kind,
			zap.String("channel", channel),
			zap.String("scope", key.ScopeID))

		v, err := create(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.items[key] = v
		c.mu.Unlock()

		// 协作式调度：作用域结束时回收本次创建的实例；
		// 创建期间作用域已结束则立即回收，不返回已关闭的实例
		if key.ScopeID != "" && !c.sc.OnScopeEnd(ctx, func() { c.evict(key, v) }) {
			c.evict(key, v)
			return nil, c.scopeEnded(key)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *scopedCache[V]) scopeEnded(key ScopeKey) error {
	return fmt.Errorf("%w，无法创建通道%s的%s，作用域：%s", scope.ErrScopeEnded, key.Channel, c.kind, key.ScopeID)
}

// evict 仅当缓存中仍是 v 时移除并关闭，重复调用无副作用
func (c *scopedCache[V]) evict(key ScopeKey, v V) {
	c.mu.Lock()
	cur, ok := c.items[key]
	if !ok || cur != v {
		c.mu.Unlock()
		return
	}
	delete(c.items, key)
	c.mu.Unlock()

	if err := c.close(key, v); err != nil {
		c.logger.Warn("closing dedicated "+c.kind+" failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func (c *scopedCache[V]) close(key ScopeKey, v V) error {
	c.logger.Debug("closing dedicated "+c.kind, zap.String("key", key.String()))
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn(v)
}

// closeAll 不传 scopeID 时关闭全部，否则只关闭该作用域的实例
func (c *scopedCache[V]) closeAll(scopeID ...string) error {
	if len(scopeID) == 0 {
		return c.closeWhere(func(ScopeKey) bool { return true })
	}
	id := scopeID[0]
	return c.closeWhere(func(k ScopeKey) bool { return k.ScopeID == id })
}

// closeCurrentScope 协作式调度下关闭当前作用域，否则关闭全部
func (c *scopedCache[V]) closeCurrentScope(ctx context.Context) error {
	if !c.sc.SupportsCoroutine() {
		return c.closeAll()
	}
	id, _ := c.sc.CurrentID(ctx)
	return c.closeAll(id)
}

func (c *scopedCache[V]) closeWhere(match func(ScopeKey) bool) error {
	c.mu.Lock()
	closing := make(map[ScopeKey]V)
	for k, v := range c.items {
		if match(k) {
			closing[k] = v
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	keys := slices.SortedFunc(maps.Keys(closing), func(a, b ScopeKey) int {
		return strings.Compare(a.String(), b.String())
	})
	var errs []error
	for _, k := range keys {
		if err := c.close(k, closing[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// snapshot 当前缓存的拷贝，键为 ScopeKey.String()
func (c *scopedCache[V]) snapshot() map[string]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]V, len(c.items))
	for k, v := range c.items {
		out[k.String()] = v
	}
	return out
}

func (c *scopedCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
