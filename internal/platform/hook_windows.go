//go:build windows

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13

	wmQuit       = 0x0012
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	llkhfInjected = 0x0010
	llkhfUp       = 0x0080
)

type kbdLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var (
	modUser32   = windows.NewLazySystemDLL("user32.dll")
	modKernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procSetWindowsHookExW   = modUser32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = modUser32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = modUser32.NewProc("CallNextHookEx")
	procGetMessageW         = modUser32.NewProc("GetMessageW")
	procTranslateMessage    = modUser32.NewProc("TranslateMessage")
	procDispatchMessageW    = modUser32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = modUser32.NewProc("PostThreadMessageW")
	procGetModuleHandleW    = modKernel32.NewProc("GetModuleHandleW")
)

var (
	// activeHook 当前安装的钩子，系统回调无法携带接收者
	activeHook atomic.Pointer[windowsHook]

	// hookCallback 回调只创建一次，NewCallback 的槽位有限
	hookCallback = windows.NewCallback(lowLevelKeyboardProc)
)

// windowsHook WH_KEYBOARD_LL 全局键盘钩子
//
// 钩子安装在专用的、锁定到操作系统线程的 goroutine 上，该线程运行自己的
// 消息循环；Unregister 通过 WM_QUIT 结束消息循环并卸载钩子。
type windowsHook struct {
	slot    HandlerSlot
	pressed pressedKeys

	threadID uint32
	done     chan struct{}

	// isRunning 钩子安装状态
	isRunning bool
	mu        sync.Mutex
}

// NewKeyboardHook 创建 Windows 全局键盘钩子
func NewKeyboardHook() KeyboardHook {
	return &windowsHook{}
}

// Register 安装钩子并启动消息循环
//
// 同一进程同时只能有一个已安装的钩子。
func (h *windowsHook) Register(handler KeyHandler) error {
	if handler == nil {
		return errors.New("platform: nil key handler")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isRunning {
		return ErrHookRunning
	}
	if !activeHook.CompareAndSwap(nil, h) {
		return ErrHookRunning
	}

	h.slot.Set(handler)
	h.done = make(chan struct{})
	ready := make(chan error, 1)
	go h.loop(ready)

	if err := <-ready; err != nil {
		h.slot.Set(nil)
		activeHook.CompareAndSwap(h, nil)
		return err
	}

	h.isRunning = true
	return nil
}

// Unregister 卸载钩子，等待消息循环退出
func (h *windowsHook) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isRunning {
		return nil
	}

	h.slot.Set(nil)
	r, _, err := procPostThreadMessageW.Call(uintptr(h.threadID), wmQuit, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}
	<-h.done

	activeHook.CompareAndSwap(h, nil)
	h.pressed.reset()
	h.isRunning = false
	return nil
}

// IsRunning 检查钩子是否已安装
func (h *windowsHook) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isRunning
}

func (h *windowsHook) loop(ready chan<- error) {
	defer close(h.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h.threadID = windows.GetCurrentThreadId()

	mod, _, _ := procGetModuleHandleW.Call(0)
	hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookCallback, mod, 0)
	if hook == 0 {
		ready <- fmt.Errorf("SetWindowsHookExW: %w", err)
		return
	}
	defer procUnhookWindowsHookEx.Call(hook)

	ready <- nil

	var m msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 为 WM_QUIT，-1 为错误
		if int32(r) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (h *windowsHook) translate(message uint32, kb *kbdLLHookStruct) KeyEvent {
	transition := KeyDown
	if message == wmKeyUp || message == wmSysKeyUp || kb.Flags&llkhfUp != 0 {
		transition = KeyUp
	}

	key := KeyName(kb.VkCode)
	return KeyEvent{
		Key:        key,
		VKCode:     kb.VkCode,
		Transition: transition,
		Pressed:    h.pressed.update(key, transition),
		Injected:   kb.Flags&llkhfInjected != 0,
	}
}

func lowLevelKeyboardProc(nCode uintptr, wParam uintptr, lParam uintptr) uintptr {
	next := func() uintptr {
		r, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
		return r
	}

	h := activeHook.Load()
	if int32(nCode) < 0 || h == nil {
		return next()
	}

	switch uint32(wParam) {
	case wmKeyDown, wmKeyUp, wmSysKeyDown, wmSysKeyUp:
	default:
		return next()
	}

	event := h.translate(uint32(wParam), (*kbdLLHookStruct)(unsafe.Pointer(lParam)))
	return h.slot.Invoke(event, next)
}
