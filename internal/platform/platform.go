package platform

import (
	"errors"
)

var (
	// ErrUnsupported 当前平台不支持全局键盘钩子与窗口自动化
	ErrUnsupported = errors.New("platform: not supported on this OS")

	// ErrHookRunning 钩子已经注册
	ErrHookRunning = errors.New("platform: keyboard hook already registered")

	// ErrWindowNotFound 没有找到目标进程的顶层窗口
	ErrWindowNotFound = errors.New("platform: target window not found")

	// ErrElementNotFound 没有找到指定的子元素
	ErrElementNotFound = errors.New("platform: element not found")
)

// KeyTransition 按键状态变化
type KeyTransition int

const (
	// KeyDown 按下
	KeyDown KeyTransition = iota
	// KeyUp 释放
	KeyUp
)

// String 返回 "key down" / "key up"
func (t KeyTransition) String() string {
	if t == KeyUp {
		return "key up"
	}
	return "key down"
}

// KeyEvent 键盘原始事件数据
//
// 由钩子线程同步构造并交给 KeyHandler，处理函数返回后即失效。
type KeyEvent struct {
	// Key 按键标识，例如 "Numpad7"、"Add"、"Lcontrol"
	Key string

	// VKCode Windows 虚拟键码
	VKCode uint32

	// Transition 按下或释放
	Transition KeyTransition

	// Pressed 事件发生时仍处于按下状态的按键（按下顺序）
	Pressed []string

	// Injected 事件由 SendInput 等方式注入而非物理键盘产生
	Injected bool
}

// IsPressed 检查某个按键是否处于按下状态
func (e KeyEvent) IsPressed(key string) bool {
	for _, k := range e.Pressed {
		if k == key {
			return true
		}
	}
	return false
}

// KeyHandler 键盘事件处理函数
//
// 返回 true 表示事件已被消费，不再传递给其他应用；返回 false 表示放行。
// 处理函数运行在系统输入线程上，不能阻塞。
type KeyHandler func(KeyEvent) bool

// KeyboardHook 全局键盘钩子
//
// KeyboardHook 定义了系统级键盘钩子的生命周期管理方法。
type KeyboardHook interface {
	// Register 安装钩子，之后每次按键状态变化调用一次 handler
	// Returns: error - 安装失败或已安装时返回错误
	Register(handler KeyHandler) error

	// Unregister 卸载钩子，返回后 handler 不会再被调用
	// 未安装时直接返回 nil
	Unregister() error

	// IsRunning 检查钩子是否已安装
	IsRunning() bool
}

// Rect 屏幕坐标矩形
type Rect struct {
	Left, Top, Right, Bottom int
}

// Element 窗口内的 UI 元素
type Element interface {
	// ClassName 窗口类名，例如 "Button"、"Static"
	ClassName() string

	// Text 元素文本
	Text() string

	// Rect 元素在屏幕上的位置
	Rect() Rect

	// IsEnabled 元素是否可交互
	IsEnabled() bool

	// Click 模拟一次点击
	Click() error

	// IsAlive 元素句柄是否仍然有效
	IsAlive() bool
}

// Window 目标应用的顶层窗口
type Window interface {
	// Title 窗口标题
	Title() string

	// IsForeground 窗口当前是否持有输入焦点
	IsForeground() bool

	// Focus 把窗口置于最前并获取输入焦点
	Focus() error

	// FindDescendant 查找第一个类名与标题都匹配的子孙元素
	FindDescendant(class, title string) (Element, error)

	// FromPoint 获取屏幕坐标处的元素
	FromPoint(x, y int) (Element, error)
}

// KeySender 向系统输入流合成按键序列
type KeySender interface {
	SendKeys(seq string) error
}

// KeySenderFunc 函数适配为 KeySender
type KeySenderFunc func(seq string) error

// SendKeys 调用 f(seq)
func (f KeySenderFunc) SendKeys(seq string) error {
	return f(seq)
}
