//go:build !windows

package platform

import (
	"fmt"
	"runtime"
)

// stubKeyboardHook 存根键盘钩子（非 Windows 平台）
//
// Register 总是返回 ErrUnsupported，允许代码在其他平台上编译通过。
type stubKeyboardHook struct{}

// NewKeyboardHook 创建键盘钩子
//
// 根据编译平台返回相应的实现：
// - Windows：WH_KEYBOARD_LL 全局钩子
// - 其他平台：存根实现
func NewKeyboardHook() KeyboardHook {
	return stubKeyboardHook{}
}

func (stubKeyboardHook) Register(KeyHandler) error {
	return unsupported("keyboard hook")
}

func (stubKeyboardHook) Unregister() error { return nil }

func (stubKeyboardHook) IsRunning() bool { return false }

// Attach 连接目标窗口（非 Windows 平台不支持）
func Attach(path string) (Window, error) {
	return nil, unsupported("window attach")
}

// SendKeys 合成按键序列（非 Windows 平台不支持）
func SendKeys(seq string) error {
	return unsupported("sendkeys")
}

func unsupported(what string) error {
	return fmt.Errorf("%s on %s: %w", what, runtime.GOOS, ErrUnsupported)
}
