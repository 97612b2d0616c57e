package stats

import (
	"context"
	"sync"
	"time"

	"github.com/nerdneilsfield/epub-translator/pkg/providers"
)

// Snapshot 某一时刻的请求统计
type Snapshot struct {
	Requests     int
	Successes    int
	Failures     map[providers.ErrorKind]int
	TotalLatency time.Duration
	MaxLatency   time.Duration
	InputChars   int
	OutputChars  int
}

// Failed 失败请求总数
func (s Snapshot) Failed() int {
	n := 0
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// AverageLatency 平均延迟
func (s Snapshot) AverageLatency() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Requests)
}

// SuccessRate 成功率（0-1）
func (s Snapshot) SuccessRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Requests)
}

// Middleware 统计后端请求的中间件
type Middleware struct {
	next providers.Backend

	mu   sync.Mutex
	snap Snapshot
	now  func() time.Time
}

var _ providers.Backend = (*Middleware)(nil)

// Wrap 为后端添加统计
func Wrap(next providers.Backend) *Middleware {
	return &Middleware{
		next: next,
		snap: Snapshot{Failures: make(map[providers.ErrorKind]int)},
		now:  time.Now,
	}
}

// Complete 转发请求并记录结果
func (m *Middleware) Complete(ctx context.Context, req providers.ChatRequest) (string, error) {
	start := m.now()
	text, err := m.next.Complete(ctx, req)
	latency := m.now().Sub(start)

	input := 0
	for _, msg := range req.Messages {
		input += len([]rune(msg.Content))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap.Requests++
	m.snap.TotalLatency += latency
	if latency > m.snap.MaxLatency {
		m.snap.MaxLatency = latency
	}
	m.snap.InputChars += input
	if err != nil {
		m.snap.Failures[providers.Classify(err)]++
		return text, err
	}
	m.snap.Successes++
	m.snap.OutputChars += len([]rune(text))
	return text, nil
}

// Snapshot 返回当前统计的副本
func (m *Middleware) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap
	s.Failures = make(map[providers.ErrorKind]int, len(m.snap.Failures))
	for k, v := range m.snap.Failures {
		s.Failures[k] = v
	}
	return s
}
