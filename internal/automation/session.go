package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chenyang-zz/lrkeys/internal/keymap"
	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/chenyang-zz/lrkeys/pkg/events"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"go.uber.org/zap"
)

// DefaultFocusTimeout 连接时等待目标窗口获得焦点的默认超时
const DefaultFocusTimeout = 2 * time.Second

// focusPollInterval 等待焦点时的轮询间隔
const focusPollInterval = 10 * time.Millisecond

// State 会话状态
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Target 目标应用解析器
type Target interface {
	// Attach 连接到正在运行的目标应用，返回其顶层窗口
	Attach(path string) (platform.Window, error)

	// Resolve 把布局坐标解析为可点击的元素
	// 元素不存在或不可交互时返回错误
	Resolve(window platform.Window, x, y int) (ActionHandle, error)
}

// Button 需要在连接时绑定的按钮
type Button struct {
	Name string
	X, Y int
}

// Options 会话配置
type Options struct {
	// Target 目标应用解析器（必需）
	Target Target

	// Hook 全局键盘钩子（必需）
	Hook platform.KeyboardHook

	// Keys 按键序列发送器（必需）
	Keys platform.KeySender

	// Bindings 按键绑定表（必需）
	Bindings *keymap.Table

	// Buttons 连接时绑定的全部按钮，任何一个失败则连接失败
	Buttons []Button

	// FocusTimeout 连接时等待窗口获得焦点的超时，0 使用默认值
	FocusTimeout time.Duration

	// ActiveSettle 焦点检查复查前的等待，0 使用默认值，负数表示不复查
	ActiveSettle time.Duration

	// Bus 事件总线，可以为 nil
	Bus *events.EventBus
}

func (o Options) validate() error {
	switch {
	case o.Target == nil:
		return errors.New("automation: Options.Target is required")
	case o.Hook == nil:
		return errors.New("automation: Options.Hook is required")
	case o.Keys == nil:
		return errors.New("automation: Options.Keys is required")
	case o.Bindings == nil:
		return errors.New("automation: Options.Bindings is required")
	}
	return nil
}

// Session 与一个目标窗口的连接
//
// 状态流转：Disconnected → Connecting → Connected → Disconnecting → Disconnected。
// 调用方负责在所有退出路径上调用 Disconnect。
type Session struct {
	opts Options

	id         string
	state      State
	path       string
	window     platform.Window
	guard      *Guard
	handles    map[string]ActionHandle
	queue      *Queue
	listener   *Listener
	dispatcher *Dispatcher

	quit     chan struct{}
	quitOnce *sync.Once

	mu sync.RWMutex
}

// NewSession 创建未连接的会话
func NewSession(opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.FocusTimeout <= 0 {
		opts.FocusTimeout = DefaultFocusTimeout
	}
	if opts.ActiveSettle == 0 {
		opts.ActiveSettle = DefaultActiveSettle
	}
	return &Session{opts: opts, state: StateDisconnected}, nil
}

// Connect 创建会话并连接到目标应用
func Connect(ctx context.Context, path string, opts Options) (*Session, error) {
	s, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx, path); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect 连接到目标应用
//
// 依次执行：连接窗口、置前并等待焦点、绑定全部按钮、启动分发器、安装钩子。
// 任何一步失败都会回到 Disconnected 且不留下已安装的钩子。
//
// Parameters:
//   - ctx: 控制等待焦点的过程
//   - path: 目标应用可执行文件路径
//
// Returns: error - 按钮绑定失败时 errors.Is(err, ErrElementUnavailable) 成立
func (s *Session) Connect(ctx context.Context, path string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return ErrAlreadyConnected
	}
	s.state = StateConnecting

	defer func() {
		if err != nil {
			s.reset()
			logger.Error("连接目标应用失败",
				zap.String("component", "session"),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}()

	logger.Info("连接目标应用", zap.String("component", "session"), zap.String("path", path))

	window, err := s.opts.Target.Attach(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	s.window = window
	s.guard = NewGuard(window, s.opts.ActiveSettle)

	if err := s.bringToFront(ctx); err != nil {
		return err
	}

	handles := make(map[string]ActionHandle, len(s.opts.Buttons))
	for _, b := range s.opts.Buttons {
		handle, err := s.opts.Target.Resolve(window, b.X, b.Y)
		if err != nil {
			return &ElementError{Name: b.Name, X: b.X, Y: b.Y, Err: err}
		}
		if handle == nil {
			return &ElementError{Name: b.Name, X: b.X, Y: b.Y}
		}
		handles[b.Name] = handle
	}
	s.handles = handles

	s.id = events.NewID()
	s.path = path
	s.quit = make(chan struct{})
	s.quitOnce = &sync.Once{}

	eventCtx := s.eventContext()
	s.queue = NewQueue()
	s.dispatcher = NewDispatcher(s.queue, s.opts.Keys, s.opts.Bus, eventCtx)
	s.dispatcher.Start()

	quit, once := s.quit, s.quitOnce
	s.listener = NewListener(s.opts.Hook, s.guard, s.opts.Bindings, handles, s.queue, func() {
		once.Do(func() { close(quit) })
	})
	if err := s.listener.Install(); err != nil {
		s.queue.Push(Terminate())
		return fmt.Errorf("install keyboard hook: %w", err)
	}

	s.state = StateConnected
	logger.Info("已连接目标应用",
		zap.String("component", "session"),
		zap.String("session_id", s.id),
		zap.String("title", window.Title()),
		zap.Int("buttons", len(handles)),
		zap.Int("bindings", s.opts.Bindings.Len()),
	)
	s.publish(events.EventTypeSessionConnected, map[string]interface{}{
		"path":    path,
		"buttons": len(handles),
	})
	return nil
}

// bringToFront 置前窗口并等待它获得焦点（调用方持有锁）
func (s *Session) bringToFront(ctx context.Context) error {
	if err := s.window.Focus(); err != nil {
		return fmt.Errorf("focus target window: %w", err)
	}

	deadline := time.NewTimer(s.opts.FocusTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(focusPollInterval)
	defer ticker.Stop()

	for !s.guard.IsActive() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrFocusLost
		case <-ticker.C:
		}
	}
	return nil
}

// Disconnect 断开会话
//
// 先卸载钩子停止产生命令，再追加 Terminate 让分发器处理完已排队的命令后
// 退出，最后释放所有元素引用。未连接时直接返回。Disconnect 不等待分发器，
// 需要等待时使用 Done。钩子卸载失败时会话保持 Connected，不追加 Terminate。
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil
	}
	s.state = StateDisconnecting

	if err := s.listener.Uninstall(); err != nil {
		// 钩子仍在产生命令，保持连接状态，调用方可以重试
		s.state = StateConnected
		logger.Warn("卸载键盘钩子失败，会话保持连接", zap.String("component", "session"), zap.Error(err))
		return fmt.Errorf("uninstall keyboard hook: %w", err)
	}
	pending := s.queue.Len()
	s.queue.Push(Terminate())

	logger.Info("断开目标应用",
		zap.String("component", "session"),
		zap.String("session_id", s.id),
		zap.Int("pending", pending),
	)
	s.publish(events.EventTypeSessionDisconnected, map[string]interface{}{
		"path":    s.path,
		"pending": pending,
	})

	s.reset()
	return nil
}

// reset 释放连接资源并回到 Disconnected（调用方持有锁）
//
// 分发器本身不在这里停止：它持有队列引用，处理完 Terminate 之前的命令后自行退出。
func (s *Session) reset() {
	s.window = nil
	s.guard = nil
	s.handles = nil
	s.listener = nil
	s.queue = nil
	s.state = StateDisconnected
}

// IsActive 目标窗口当前是否持有输入焦点，未连接时返回 false
func (s *Session) IsActive() bool {
	s.mu.RLock()
	guard := s.guard
	s.mu.RUnlock()
	return guard.IsActive()
}

// State 当前会话状态
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ID 当前或最近一次连接的会话 ID
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Done 分发器退出后关闭；从未连接过时返回已关闭的通道
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dispatcher == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.dispatcher.Done()
}

// QuitRequested 按下退出绑定后关闭；从未连接过时返回 nil
func (s *Session) QuitRequested() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quit
}

// BringToFront 把目标窗口置前并等待获得焦点
func (s *Session) BringToFront(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return ErrNotConnected
	}
	return s.bringToFront(ctx)
}

// Handle 返回已绑定的按钮元素
func (s *Session) Handle(name string) (ActionHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateConnected {
		return nil, ErrNotConnected
	}
	handle, ok := s.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: no button named %s", ErrElementUnavailable, name)
	}
	return handle, nil
}

func (s *Session) eventContext() *events.EventContext {
	ctx := &events.EventContext{SessionID: s.id, TargetPath: s.path}
	if s.window != nil {
		ctx.WindowTitle = s.window.Title()
	}
	return ctx
}

func (s *Session) publish(eventType events.EventType, data map[string]interface{}) {
	if s.opts.Bus == nil {
		return
	}
	event := events.NewEvent(eventType, data).WithContext(s.eventContext())
	if err := s.opts.Bus.Publish(string(eventType), *event); err != nil {
		logger.Debug("发布会话事件失败", zap.String("component", "session"), zap.Error(err))
	}
}
