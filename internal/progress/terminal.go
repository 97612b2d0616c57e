package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	updateFrequency = 100 * time.Millisecond
	renderTimeout   = 2 * time.Second
)

// Terminal 用 go-pretty 进度条显示翻译进度
// 一个总进度条统计文档数，每个文档一个片段进度条
type Terminal struct {
	mu sync.Mutex

	pw       progress.Writer
	overall  *progress.Tracker
	current  *progress.Tracker
	rendered chan struct{}
}

var (
	_ Sink         = (*Terminal)(nil)
	_ PartObserver = (*Terminal)(nil)
)

// NewTerminal 创建终端进度显示，out 为输出目标
func NewTerminal(out io.Writer) *Terminal {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(true)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(28)
	pw.SetUpdateFrequency(updateFrequency)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Colors.Message = text.Colors{text.FgCyan}
	pw.Style().Options.DoneString = "完成"
	pw.Style().Options.ErrorString = "失败"
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true

	return &Terminal{pw: pw}
}

// SetTotal 创建总进度条并开始渲染
func (t *Terminal) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.overall != nil {
		t.overall.UpdateTotal(int64(total))
		return
	}

	t.overall = &progress.Tracker{
		Message: "文档",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	t.pw.AppendTracker(t.overall)

	t.rendered = make(chan struct{})
	go func() {
		defer close(t.rendered)
		t.pw.Render()
	}()
}

// PartStarted 结束上一个文档的进度条并为新文档创建进度条
func (t *Terminal) PartStarted(index int, id string, segments int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finishCurrent()
	t.current = &progress.Tracker{
		Message: fmt.Sprintf("%d. %s", index+1, id),
		Total:   int64(segments),
		Units:   progress.UnitsDefault,
	}
	t.pw.AppendTracker(t.current)
}

// Tick 当前文档完成一个片段
func (t *Terminal) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		t.current.Increment(1)
	}
}

// Finish 停止渲染，success 为 false 时未完成的进度条标记为失败
func (t *Terminal) Finish(success bool) {
	t.mu.Lock()
	if t.overall == nil {
		t.mu.Unlock()
		return
	}

	if success {
		t.finishCurrent()
		t.overall.MarkAsDone()
	} else {
		if t.current != nil && !t.current.IsDone() {
			t.current.MarkAsErrored()
		}
		t.overall.MarkAsErrored()
	}
	rendered := t.rendered
	t.mu.Unlock()

	select {
	case <-rendered:
	case <-time.After(renderTimeout):
		t.pw.Stop()
	}
}

func (t *Terminal) finishCurrent() {
	if t.current == nil {
		return
	}
	if !t.current.IsDone() {
		t.current.MarkAsDone()
	}
	if t.overall != nil {
		t.overall.Increment(1)
	}
}
