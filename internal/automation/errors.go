package automation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected 会话尚未连接到目标窗口
	ErrNotConnected = errors.New("automation: not connected")

	// ErrAlreadyConnected 会话已连接，需要先断开
	ErrAlreadyConnected = errors.New("automation: already connected")

	// ErrElementUnavailable 配置的按钮无法绑定到可点击的元素
	ErrElementUnavailable = errors.New("automation: element unavailable")

	// ErrFocusLost 连接时目标窗口没有在超时内获得输入焦点
	ErrFocusLost = errors.New("automation: target window did not become active")
)

// ElementError 按钮绑定失败
//
// errors.Is(err, ErrElementUnavailable) 对它总是成立。
type ElementError struct {
	// Name 按钮名称
	Name string

	// X, Y 按钮的布局坐标
	X, Y int

	// Err 底层原因
	Err error
}

func (e *ElementError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("can't find button %s at pos %d:%d", e.Name, e.X, e.Y)
	}
	return fmt.Sprintf("can't find button %s at pos %d:%d: %v", e.Name, e.X, e.Y, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// Is 使 ElementError 匹配 ErrElementUnavailable
func (e *ElementError) Is(target error) bool {
	return target == ErrElementUnavailable
}
