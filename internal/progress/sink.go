package progress

import (
	"fmt"
	"sync"
)

// Sink 接收翻译进度
// SetTotal 在任何 Tick 之前调用一次，参数是文档数量；
// 每个非空片段处理完（成功或回退）调用一次 Tick
type Sink interface {
	SetTotal(total int)
	Tick()
}

// PartObserver 可选接口，在开始处理每个文档时收到通知
type PartObserver interface {
	PartStarted(index int, id string, segments int)
}

// Nop 丢弃所有进度
type Nop struct{}

func (Nop) SetTotal(int) {}
func (Nop) Tick()        {}

// Counter 记录收到的进度事件，可安全并发使用
type Counter struct {
	mu     sync.Mutex
	total  int
	ticks  int
	events []string
}

var (
	_ Sink         = (*Counter)(nil)
	_ PartObserver = (*Counter)(nil)
)

// SetTotal 记录总数
func (c *Counter) SetTotal(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
	c.events = append(c.events, fmt.Sprintf("total:%d", total))
}

// Tick 记录一次完成
func (c *Counter) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	c.events = append(c.events, "tick")
}

// PartStarted 记录文档开始
func (c *Counter) PartStarted(index int, id string, segments int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, fmt.Sprintf("part:%d:%s:%d", index, id, segments))
}

// Total 返回最近一次 SetTotal 的值
func (c *Counter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Ticks 返回 Tick 次数
func (c *Counter) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Events 按顺序返回所有事件
func (c *Counter) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}
