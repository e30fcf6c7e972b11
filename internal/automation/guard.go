package automation

import (
	"time"

	"github.com/chenyang-zz/lrkeys/internal/platform"
)

// DefaultActiveSettle 焦点检查失败后的默认复查等待
const DefaultActiveSettle = 100 * time.Microsecond

// Guard 活动窗口守卫
//
// IsActive 运行在钩子回调线程上：第一次检查失败时最多等待 settle 再复查
// 一次，用来吸收焦点切换过程中的竞态，不会阻塞更久。
type Guard struct {
	window platform.Window
	settle time.Duration
}

// NewGuard 创建活动窗口守卫
//
// Parameters:
//   - window: 目标窗口，可以为 nil（此时 IsActive 恒为 false）
//   - settle: 复查前的等待，0 表示不复查
func NewGuard(window platform.Window, settle time.Duration) *Guard {
	return &Guard{window: window, settle: settle}
}

// IsActive 目标窗口当前是否持有输入焦点
func (g *Guard) IsActive() bool {
	if g == nil || g.window == nil {
		return false
	}
	if g.window.IsForeground() {
		return true
	}
	if g.settle <= 0 {
		return false
	}
	time.Sleep(g.settle)
	return g.window.IsForeground()
}
