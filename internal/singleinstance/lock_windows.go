//go:build windows

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	"golang.org/x/sys/windows"
)

// Lock 持有 Windows 命名互斥量
//
// 进程退出时内核自动释放互斥量。
type Lock struct {
	handle windows.Handle
}

// TryLock 尝试获取命名互斥量
//
// Returns: error - 另一个进程持有互斥量时返回 ErrAlreadyRunning
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("singleinstance: mutex name is required")
	}
	nameUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid mutex name %q: %w", name, err)
	}

	h, err := windows.CreateMutex(nil, true, nameUTF16)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
	}
	return &Lock{handle: h}, nil
}

// Release 关闭互斥量句柄，nil 接收者与重复调用都是安全的
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}

// DefaultMutexName 当前用户会话内的互斥量名
func DefaultMutexName() string {
	username := os.Getenv("USERNAME")
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}
	return `Local\lrkeys-` + sanitize(username)
}
