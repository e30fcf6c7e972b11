//go:build !windows

package singleinstance

// Lock 非 Windows 平台上的空实现
type Lock struct{}

// TryLock 非 Windows 平台总是成功
func TryLock(string) (*Lock, error) { return &Lock{}, nil }

// Release 空操作
func (l *Lock) Release() error { return nil }

// DefaultMutexName 非 Windows 平台返回空字符串
func DefaultMutexName() string { return "" }
