// Package scope 执行作用域：提供当前作用域标识、是否为协作式调度，以及作用域结束回调。
//
// Process 表示整个进程只有一个隐式作用域；Tasks 为每个任务创建独立作用域，
// 任务标识通过 context.Context 传递。
package scope

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrScopeEnded ctx 所属的作用域已经结束
var ErrScopeEnded = errors.New("scope has ended")

// Context 作用域上下文能力
type Context interface {
	// CurrentID 当前作用域标识，ctx 不属于任何作用域时返回 false
	CurrentID(ctx context.Context) (string, bool)
	// SupportsCoroutine 是否启用协作式调度（每个任务独立作用域）
	SupportsCoroutine() bool
	// Ended ctx 所属的作用域是否已结束
	Ended(ctx context.Context) bool
	// OnScopeEnd 注册作用域结束时执行的回调；作用域已结束或不存在时不注册，返回 false
	OnScopeEnd(ctx context.Context, fn func()) bool
}

// deferred 后注册先执行的回调栈，只运行一次
type deferred struct {
	mu    sync.Mutex
	fns   []func()
	ended bool
}

func (d *deferred) push(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ended {
		return false
	}
	d.fns = append(d.fns, fn)
	return true
}

func (d *deferred) isEnded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

func (d *deferred) run(final bool) {
	d.mu.Lock()
	fns := d.fns
	d.fns = nil
	if final {
		d.ended = true
	}
	d.mu.Unlock()

	for _, fn := range slices.Backward(fns) {
		fn()
	}
}

// Process 非协作式作用域：整个进程共享一个作用域
type Process struct {
	id string
	deferred
}

var _ Context = (*Process)(nil)

// NewProcess 创建进程作用域
func NewProcess() *Process {
	return &Process{id: uuid.NewString()}
}

func (p *Process) ID() string { return p.id }

func (p *Process) CurrentID(context.Context) (string, bool) { return p.id, true }

func (p *Process) SupportsCoroutine() bool { return false }

func (p *Process) Ended(context.Context) bool { return false }

func (p *Process) OnScopeEnd(_ context.Context, fn func()) bool { return p.push(fn) }

// Reset 执行并清空已注册的回调，作用域可继续使用
func (p *Process) Reset() { p.run(false) }

// Tasks 协作式作用域：每个任务一个作用域
type Tasks struct {
	active atomic.Int64
}

var _ Context = (*Tasks)(nil)

func NewTasks() *Tasks { return &Tasks{} }

// Task 单个任务作用域
type Task struct {
	id     string
	owner  *Tasks
	once   sync.Once
	parent *Task
	deferred
}

type taskKey struct{}

// Begin 开启新任务作用域，返回携带该任务的 ctx
func (ts *Tasks) Begin(ctx context.Context) (context.Context, *Task) {
	parent, _ := ctx.Value(taskKey{}).(*Task)
	t := &Task{id: uuid.NewString(), owner: ts, parent: parent}
	ts.active.Add(1)
	return context.WithValue(ctx, taskKey{}, t), t
}

// Run 在新任务作用域中同步执行 fn，返回前结束该作用域
func (ts *Tasks) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	taskCtx, task := ts.Begin(ctx)
	defer task.End()
	return fn(taskCtx)
}

// Active 尚未结束的任务数
func (ts *Tasks) Active() int { return int(ts.active.Load()) }

func (ts *Tasks) CurrentID(ctx context.Context) (string, bool) {
	t := FromContext(ctx)
	if t == nil {
		return "", false
	}
	return t.id, true
}

func (ts *Tasks) SupportsCoroutine() bool { return true }

func (ts *Tasks) Ended(ctx context.Context) bool {
	t := FromContext(ctx)
	return t != nil && t.Ended()
}

// OnScopeEnd ctx 不属于任何任务或任务已结束时忽略回调
func (ts *Tasks) OnScopeEnd(ctx context.Context, fn func()) bool {
	t := FromContext(ctx)
	if t == nil {
		return false
	}
	return t.push(fn)
}

func (t *Task) ID() string { return t.id }

// Parent 外层任务，没有时为 nil
func (t *Task) Parent() *Task { return t.parent }

// Ended 是否已调用过 End
func (t *Task) Ended() bool { return t.isEnded() }

// End 结束作用域：按注册的逆序执行回调，重复调用无副作用
func (t *Task) End() {
	t.once.Do(func() {
		t.run(true)
		t.owner.active.Add(-1)
	})
}

// FromContext 取出 ctx 中的当前任务
func FromContext(ctx context.Context) *Task {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}
