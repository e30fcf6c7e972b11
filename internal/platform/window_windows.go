//go:build windows

package platform

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	swRestore    = 9
	gaRoot       = 2
	wmLButtonDn  = 0x0201
	wmLButtonUp  = 0x0202
	mkLButton    = 0x0001
	maxTextChars = 512
)

var (
	procGetForegroundWindow      = modUser32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = modUser32.NewProc("SetForegroundWindow")
	procShowWindow               = modUser32.NewProc("ShowWindow")
	procIsIconic                 = modUser32.NewProc("IsIconic")
	procIsWindow                 = modUser32.NewProc("IsWindow")
	procIsWindowVisible          = modUser32.NewProc("IsWindowVisible")
	procIsWindowEnabled          = modUser32.NewProc("IsWindowEnabled")
	procGetWindowRect            = modUser32.NewProc("GetWindowRect")
	procWindowFromPoint          = modUser32.NewProc("WindowFromPoint")
	procGetAncestor              = modUser32.NewProc("GetAncestor")
	procPostMessageW             = modUser32.NewProc("PostMessageW")
	procEnumWindows              = modUser32.NewProc("EnumWindows")
	procEnumChildWindows         = modUser32.NewProc("EnumChildWindows")
	procGetClassNameW            = modUser32.NewProc("GetClassNameW")
	procGetWindowTextW           = modUser32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessID = modUser32.NewProc("GetWindowThreadProcessId")
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

var (
	// enumMu 串行化窗口枚举，回调通过 enumVisit 拿到本次的访问函数
	enumMu    sync.Mutex
	enumVisit func(hwnd uintptr) bool

	enumCallback = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if enumVisit != nil && enumVisit(hwnd) {
			return 1
		}
		return 0
	})
)

// enumWindows 枚举顶层窗口（parent 为 0）或 parent 的所有子孙窗口
//
// visit 返回 false 时停止枚举。顶层窗口按 Z 序从上到下枚举。
func enumWindows(parent uintptr, visit func(hwnd uintptr) bool) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumVisit = visit
	defer func() { enumVisit = nil }()

	if parent == 0 {
		procEnumWindows.Call(enumCallback, 0)
		return
	}
	procEnumChildWindows.Call(parent, enumCallback, 0)
}

// Attach 连接到一个正在运行的进程的顶层窗口
//
// 按可执行文件完整路径匹配进程（不区分大小写），在该进程的可见顶层窗口中
// 优先返回前台窗口，否则返回 Z 序最靠上的一个。
//
// Parameters:
//   - path: 目标应用可执行文件路径
//
// Returns:
//   - Window: 顶层窗口
//   - error: 没有匹配的窗口时返回 ErrWindowNotFound
func Attach(path string) (Window, error) {
	want := filepath.Clean(path)
	paths := make(map[uint32]string)

	var candidates []uintptr
	enumWindows(0, func(hwnd uintptr) bool {
		if r, _, _ := procIsWindowVisible.Call(hwnd); r == 0 {
			return true
		}
		var pid uint32
		procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
		if pid == 0 {
			return true
		}
		image, ok := paths[pid]
		if !ok {
			image, _ = processImagePath(pid)
			paths[pid] = image
		}
		if image != "" && strings.EqualFold(filepath.Clean(image), want) {
			candidates = append(candidates, hwnd)
		}
		return true
	})

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWindowNotFound, path)
	}

	foreground, _, _ := procGetForegroundWindow.Call()
	for _, hwnd := range candidates {
		if hwnd == foreground {
			return &win32Window{hwnd: hwnd}, nil
		}
	}
	return &win32Window{hwnd: candidates[0]}, nil
}

func processImagePath(pid uint32) (string, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	var buf [1024]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName(%d): %w", pid, err)
	}
	return windows.UTF16ToString(buf[:size]), nil
}

func windowText(hwnd uintptr) string {
	var buf [maxTextChars]uint16
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func className(hwnd uintptr) string {
	var buf [256]uint16
	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func windowRect(hwnd uintptr) Rect {
	var r winRect
	procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	return Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}
}

// win32Window 顶层窗口
type win32Window struct {
	hwnd uintptr
}

func (w *win32Window) Title() string {
	return windowText(w.hwnd)
}

func (w *win32Window) IsForeground() bool {
	foreground, _, _ := procGetForegroundWindow.Call()
	return foreground != 0 && foreground == w.hwnd
}

// Focus 还原最小化的窗口并请求成为前台窗口
//
// 系统可能拒绝切换前台，调用方需要自行确认 IsForeground。
func (w *win32Window) Focus() error {
	if r, _, _ := procIsWindow.Call(w.hwnd); r == 0 {
		return fmt.Errorf("%w: window 0x%X is gone", ErrWindowNotFound, w.hwnd)
	}
	if r, _, _ := procIsIconic.Call(w.hwnd); r != 0 {
		procShowWindow.Call(w.hwnd, swRestore)
	}
	procSetForegroundWindow.Call(w.hwnd)
	return nil
}

func (w *win32Window) FindDescendant(class, title string) (Element, error) {
	var found uintptr
	enumWindows(w.hwnd, func(hwnd uintptr) bool {
		if className(hwnd) == class && windowText(hwnd) == title {
			found = hwnd
			return false
		}
		return true
	})
	if found == 0 {
		return nil, fmt.Errorf("%w: class=%q title=%q", ErrElementNotFound, class, title)
	}
	return &win32Element{hwnd: found}, nil
}

func (w *win32Window) FromPoint(x, y int) (Element, error) {
	// POINT 按值传递，x64 上打包为一个 64 位参数
	pt := uintptr(uint32(int32(x))) | uintptr(uint32(int32(y)))<<32
	hwnd, _, _ := procWindowFromPoint.Call(pt)
	if hwnd == 0 {
		return nil, fmt.Errorf("%w: no window at %d,%d", ErrElementNotFound, x, y)
	}
	if root, _, _ := procGetAncestor.Call(hwnd, gaRoot); root != w.hwnd {
		return nil, fmt.Errorf("%w: point %d,%d belongs to another window", ErrElementNotFound, x, y)
	}
	return &win32Element{hwnd: hwnd}, nil
}

// win32Element 子窗口控件
type win32Element struct {
	hwnd uintptr
}

func (e *win32Element) ClassName() string { return className(e.hwnd) }

func (e *win32Element) Text() string { return windowText(e.hwnd) }

func (e *win32Element) Rect() Rect { return windowRect(e.hwnd) }

func (e *win32Element) IsEnabled() bool {
	r, _, _ := procIsWindowEnabled.Call(e.hwnd)
	return r != 0
}

func (e *win32Element) IsAlive() bool {
	r, _, _ := procIsWindow.Call(e.hwnd)
	return r != 0
}

// Click 向控件中心投递一次左键按下与抬起
func (e *win32Element) Click() error {
	r := e.Rect()
	cx := (r.Right - r.Left) / 2
	cy := (r.Bottom - r.Top) / 2
	lparam := uintptr(uint16(cx)) | uintptr(uint16(cy))<<16

	if ok, _, err := procPostMessageW.Call(e.hwnd, wmLButtonDn, mkLButton, lparam); ok == 0 {
		return fmt.Errorf("PostMessageW(WM_LBUTTONDOWN): %w", err)
	}
	if ok, _, err := procPostMessageW.Call(e.hwnd, wmLButtonUp, 0, lparam); ok == 0 {
		return fmt.Errorf("PostMessageW(WM_LBUTTONUP): %w", err)
	}
	return nil
}
