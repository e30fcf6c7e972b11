// Package target 把布局坐标解析为目标应用中的按钮元素
package target

import (
	"errors"
	"fmt"

	"github.com/chenyang-zz/lrkeys/internal/automation"
	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"go.uber.org/zap"
)

// ErrNotAButton 坐标处的元素不是可点击按钮
var ErrNotAButton = errors.New("target: element at point is not a button")

// Anchor 布局锚点
//
// 按钮坐标相对锚点控件计算，锚点在参考布局中位于 (X, Y)。
type Anchor struct {
	Class string
	Title string
	X, Y  int
}

// Layout 按钮布局
type Layout struct {
	// Anchor 锚点控件
	Anchor Anchor

	// Margin 加到换算后坐标上的偏移，使点落在按钮内部
	Margin int

	// RequireClass 目标元素必须具有的类名，为空时不检查
	RequireClass string
}

// DefaultLayout 默认布局
//
// 锚点是 "Tone Control" 静态文本，参考位置 1656:404。
func DefaultLayout() Layout {
	return Layout{
		Anchor:       Anchor{Class: "Static", Title: "Tone Control", X: 1656, Y: 404},
		Margin:       3,
		RequireClass: "Button",
	}
}

// AttachFunc 连接目标进程的函数
type AttachFunc func(path string) (platform.Window, error)

// Resolver 基于布局锚点的按钮解析器
//
// Resolver 实现 automation.Target。
type Resolver struct {
	layout Layout
	attach AttachFunc
}

var _ automation.Target = (*Resolver)(nil)

// NewResolver 创建使用系统窗口 API 的解析器
func NewResolver(layout Layout) *Resolver {
	return NewResolverWith(layout, platform.Attach)
}

// NewResolverWith 使用自定义的连接函数创建解析器
func NewResolverWith(layout Layout, attach AttachFunc) *Resolver {
	return &Resolver{layout: layout, attach: attach}
}

// Layout 返回解析器使用的布局
func (r *Resolver) Layout() Layout {
	return r.layout
}

// Attach 连接到正在运行的目标应用
func (r *Resolver) Attach(path string) (platform.Window, error) {
	return r.attach(path)
}

// Point 把参考布局坐标换算为屏幕坐标
//
// Parameters:
//   - anchor: 锚点控件当前的屏幕位置
//   - x, y: 参考布局中的按钮坐标
//
// Returns: 屏幕坐标
func (r *Resolver) Point(anchor platform.Rect, x, y int) (int, int) {
	l := r.layout
	return anchor.Left + x - l.Anchor.X + l.Margin, anchor.Top + y - l.Anchor.Y + l.Margin
}

// Resolve 解析参考坐标 (x, y) 处的按钮
//
// 每次调用都重新查找锚点，窗口移动后重新连接即可得到新位置。
// 没有加载照片时按钮会变成禁用的普通视图，这时返回错误。
func (r *Resolver) Resolve(window platform.Window, x, y int) (automation.ActionHandle, error) {
	if window == nil {
		return nil, platform.ErrWindowNotFound
	}

	a := r.layout.Anchor
	anchor, err := window.FindDescendant(a.Class, a.Title)
	if err != nil {
		return nil, fmt.Errorf("find anchor %s %q: %w", a.Class, a.Title, err)
	}

	px, py := r.Point(anchor.Rect(), x, y)
	element, err := window.FromPoint(px, py)
	if err != nil {
		return nil, fmt.Errorf("element at %d:%d: %w", px, py, err)
	}

	if err := r.check(element); err != nil {
		logger.Debug("坐标处不是可用按钮",
			zap.String("component", "target"),
			zap.Int("x", px),
			zap.Int("y", py),
			zap.String("class", element.ClassName()),
			zap.String("text", element.Text()),
		)
		return nil, err
	}
	return element, nil
}

func (r *Resolver) check(element platform.Element) error {
	if class := r.layout.RequireClass; class != "" && element.ClassName() != class {
		return fmt.Errorf("%w: class %q", ErrNotAButton, element.ClassName())
	}
	if text := element.Text(); text != "" {
		return fmt.Errorf("%w: text %q", ErrNotAButton, text)
	}
	if !element.IsEnabled() {
		return fmt.Errorf("%w: disabled", ErrNotAButton)
	}
	return nil
}
