package automation

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/chenyang-zz/lrkeys/pkg/events"
)

// recorder 记录跨多个假对象的调用顺序
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// fakeHandle 假按钮
type fakeHandle struct {
	name  string
	rec   *recorder
	dead  atomic.Bool
	block chan struct{}

	mu      sync.Mutex
	clicks  int
	errs    []error
	panicOn int
}

func newFakeHandle(name string, rec *recorder) *fakeHandle {
	return &fakeHandle{name: name, rec: rec}
}

func (h *fakeHandle) Click() error {
	if h.block != nil {
		<-h.block
	}

	h.mu.Lock()
	h.clicks++
	n := h.clicks
	var err error
	if len(h.errs) >= n {
		err = h.errs[n-1]
	}
	panicOn := h.panicOn
	h.mu.Unlock()

	h.rec.record("click:" + h.name)
	if panicOn == n {
		panic("click exploded")
	}
	return err
}

func (h *fakeHandle) IsAlive() bool { return !h.dead.Load() }

func (h *fakeHandle) Clicks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clicks
}

// fakeKeys 假按键发送器
type fakeKeys struct {
	rec *recorder
	err error

	mu   sync.Mutex
	sent []string
}

func (k *fakeKeys) SendKeys(seq string) error {
	k.mu.Lock()
	k.sent = append(k.sent, seq)
	k.mu.Unlock()
	k.rec.record("keys:" + seq)
	return k.err
}

func (k *fakeKeys) Sent() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, len(k.sent))
	copy(out, k.sent)
	return out
}

// fakeWindow 假目标窗口
type fakeWindow struct {
	title      string
	foreground atomic.Bool
	// grantFocus 为 true 时 Focus 会让窗口成为前台
	grantFocus bool
	focusErr   error
	focusCalls atomic.Int32

	// foregroundFn 设置后代替 foreground 标志
	foregroundFn func() bool
}

func (w *fakeWindow) Title() string { return w.title }

func (w *fakeWindow) IsForeground() bool {
	if w.foregroundFn != nil {
		return w.foregroundFn()
	}
	return w.foreground.Load()
}

func (w *fakeWindow) Focus() error {
	w.focusCalls.Add(1)
	if w.focusErr != nil {
		return w.focusErr
	}
	if w.grantFocus {
		w.foreground.Store(true)
	}
	return nil
}

func (w *fakeWindow) FindDescendant(class, title string) (platform.Element, error) {
	return nil, platform.ErrElementNotFound
}

func (w *fakeWindow) FromPoint(x, y int) (platform.Element, error) {
	return nil, platform.ErrElementNotFound
}

type point struct{ x, y int }

// fakeTarget 假目标解析器
type fakeTarget struct {
	window    *fakeWindow
	attachErr error
	handles   map[point]ActionHandle

	mu       sync.Mutex
	attached []string
}

func (t *fakeTarget) Attach(path string) (platform.Window, error) {
	t.mu.Lock()
	t.attached = append(t.attached, path)
	t.mu.Unlock()
	if t.attachErr != nil {
		return nil, t.attachErr
	}
	return t.window, nil
}

func (t *fakeTarget) Resolve(window platform.Window, x, y int) (ActionHandle, error) {
	if h, ok := t.handles[point{x, y}]; ok {
		return h, nil
	}
	return nil, errors.New("no button at point")
}

// fakeHook 假键盘钩子，Fire 在调用方线程上同步执行处理函数
type fakeHook struct {
	registerErr   error
	unregisterErr error

	mu          sync.Mutex
	handler     platform.KeyHandler
	registers   int
	unregisters int
}

func (h *fakeHook) Register(handler platform.KeyHandler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registerErr != nil {
		return h.registerErr
	}
	if h.handler != nil {
		return platform.ErrHookRunning
	}
	h.handler = handler
	h.registers++
	return nil
}

func (h *fakeHook) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unregisterErr != nil {
		return h.unregisterErr
	}
	if h.handler != nil {
		h.unregisters++
	}
	h.handler = nil
	return nil
}

func (h *fakeHook) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler != nil
}

// Fire 投递一个事件，钩子未安装时返回 false
func (h *fakeHook) Fire(event platform.KeyEvent) bool {
	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()
	if handler == nil {
		return false
	}
	return handler(event)
}

func (h *fakeHook) Counts() (registers, unregisters int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registers, h.unregisters
}

// fixedGuard 固定结果的焦点检查
type fixedGuard struct{ active atomic.Bool }

func (g *fixedGuard) IsActive() bool { return g.active.Load() }

func newFixedGuard(active bool) *fixedGuard {
	g := &fixedGuard{}
	g.active.Store(active)
	return g
}

func keyDown(key string) platform.KeyEvent {
	return platform.KeyEvent{Key: key, Transition: platform.KeyDown, Pressed: []string{key}}
}

func keyUp(key string) platform.KeyEvent {
	return platform.KeyEvent{Key: key, Transition: platform.KeyUp}
}

// eventCollector 收集事件总线上的事件
type eventCollector struct {
	mu     sync.Mutex
	events []events.Event
}

func collectEvents(bus *events.EventBus) *eventCollector {
	c := &eventCollector{}
	bus.Subscribe("*", func(event events.Event) error {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
		return nil
	})
	return c
}

func (c *eventCollector) Types() []events.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]events.EventType, 0, len(c.events))
	for _, e := range c.events {
		types = append(types, e.Type)
	}
	return types
}

func (c *eventCollector) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}
