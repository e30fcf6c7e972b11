// Package singleinstance 保证每个用户只运行一个 lrkeys 实例
package singleinstance

import (
	"errors"
	"strings"
	"unicode"
)

// ErrAlreadyRunning 另一个实例已经持有锁
var ErrAlreadyRunning = errors.New("singleinstance: another instance is already running")

// sanitize 把用户名中的非字母数字字符替换为 '_'，用于互斥量名
func sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, value)
}
