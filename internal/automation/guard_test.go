package automation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestGuard_IsActive 测试活动窗口检查
//
// 测试场景：
//  1. 没有窗口时返回 false
//  2. 窗口在前台时返回 true
//  3. 窗口不在前台且不复查时返回 false
//  4. 焦点在复查等待期间到达时返回 true
//  5. 复查等待很短
func TestGuard_IsActive(t *testing.T) {
	t.Run("没有窗口", func(t *testing.T) {
		assert.False(t, NewGuard(nil, DefaultActiveSettle).IsActive())

		var nilGuard *Guard
		assert.False(t, nilGuard.IsActive())
	})

	t.Run("窗口在前台", func(t *testing.T) {
		w := &fakeWindow{}
		w.foreground.Store(true)
		assert.True(t, NewGuard(w, 0).IsActive())
	})

	t.Run("不复查", func(t *testing.T) {
		var calls atomic.Int32
		w := &fakeWindow{foregroundFn: func() bool {
			calls.Add(1)
			return false
		}}
		assert.False(t, NewGuard(w, 0).IsActive())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("复查时获得焦点", func(t *testing.T) {
		var calls atomic.Int32
		w := &fakeWindow{foregroundFn: func() bool {
			return calls.Add(1) > 1
		}}
		assert.True(t, NewGuard(w, DefaultActiveSettle).IsActive())
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("复查不阻塞", func(t *testing.T) {
		w := &fakeWindow{}
		start := time.Now()
		assert.False(t, NewGuard(w, DefaultActiveSettle).IsActive())
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})
}
