package automation

import (
	"github.com/chenyang-zz/lrkeys/internal/keymap"
	"github.com/chenyang-zz/lrkeys/internal/platform"
)

// ActiveChecker 判断目标窗口是否持有焦点
type ActiveChecker interface {
	IsActive() bool
}

// Listener 键盘钩子监听器（生产者）
//
// Handle 在系统输入线程上同步执行，按以下顺序过滤，任一条件不满足即放行：
//  1. 必须是按下事件
//  2. 目标窗口持有焦点
//  3. 按键在绑定表中
//
// 通过过滤后把命令入队并立即返回 true（消费事件），不等待执行结果。
type Listener struct {
	hook     platform.KeyboardHook
	guard    ActiveChecker
	bindings *keymap.Table
	handles  map[string]ActionHandle
	queue    *Queue
	onQuit   func()
}

// NewListener 创建监听器
//
// Parameters:
//   - hook: 全局键盘钩子
//   - guard: 活动窗口守卫
//   - bindings: 按键绑定表
//   - handles: 按钮名称 -> 已解析的元素，只读
//   - queue: 命令队列
//   - onQuit: 按下退出绑定时调用，可以为 nil；同样运行在输入线程上，不能阻塞
func NewListener(hook platform.KeyboardHook, guard ActiveChecker, bindings *keymap.Table,
	handles map[string]ActionHandle, queue *Queue, onQuit func()) *Listener {
	return &Listener{
		hook:     hook,
		guard:    guard,
		bindings: bindings,
		handles:  handles,
		queue:    queue,
		onQuit:   onQuit,
	}
}

// Install 安装钩子
func (l *Listener) Install() error {
	return l.hook.Register(l.Handle)
}

// Uninstall 卸载钩子，返回后不再产生新命令
func (l *Listener) Uninstall() error {
	return l.hook.Unregister()
}

// Handle 处理一个键盘事件
//
// Returns: bool - true 表示事件已消费
func (l *Listener) Handle(event platform.KeyEvent) bool {
	if event.Transition != platform.KeyDown {
		return false
	}
	if !l.guard.IsActive() {
		return false
	}

	action, ok := l.bindings.Lookup(event.Key, event.Pressed)
	if !ok {
		return false
	}

	switch action.Kind {
	case keymap.ActionClick:
		// 名称没有解析出句柄时入队 nil，由分发器跳过
		l.queue.Push(NewClick(event.Key, action.Target, l.handles[action.Target]))
	case keymap.ActionKeys:
		l.queue.Push(NewKeySequence(event.Key, action.Keys))
	case keymap.ActionQuit:
		if l.onQuit != nil {
			l.onQuit()
		}
	default:
		return false
	}
	return true
}
