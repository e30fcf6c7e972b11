package platform

import (
	"sync/atomic"
)

// HandlerSlot 可替换的按键处理函数槽
//
// 钩子回调通过 Invoke 调用当前处理函数。处理函数放行事件时，槽会在
// 默认处理（CallNextHookEx）期间临时清空，默认处理结束后再恢复，
// 这样默认处理链如果重新进入同一个回调，不会再次触发处理函数。
//
// 零值可直接使用；所有方法可在任意线程调用。
type HandlerSlot struct {
	entry atomic.Pointer[slotEntry]
}

// slotEntry 每次 Set 都生成新的条目，Invoke 据此判断默认处理期间槽是否被改动过
type slotEntry struct {
	handler KeyHandler
}

// Set 设置处理函数，nil 表示清空
func (s *HandlerSlot) Set(handler KeyHandler) {
	s.entry.Store(&slotEntry{handler: handler})
}

// Load 返回当前处理函数，未设置时返回 nil
func (s *HandlerSlot) Load() KeyHandler {
	if e := s.entry.Load(); e != nil {
		return e.handler
	}
	return nil
}

// Invoke 分发一个键盘事件
//
// 默认处理期间只要有人调用过 Set（包括 Set(nil)），结束后就不再恢复原处理函数。
//
// Parameters:
//   - event: 键盘事件
//   - next: 默认处理，返回值作为钩子过程的返回值
//
// Returns: uintptr - 事件被消费时返回 1，否则返回 next 的结果
func (s *HandlerSlot) Invoke(event KeyEvent, next func() uintptr) uintptr {
	current := s.entry.Load()
	if current == nil || current.handler == nil {
		return next()
	}
	if current.handler(event) {
		return 1
	}

	detached := &slotEntry{}
	if !s.entry.CompareAndSwap(current, detached) {
		return next()
	}
	result := next()
	s.entry.CompareAndSwap(detached, current)
	return result
}
