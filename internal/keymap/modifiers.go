package keymap

import (
	"strings"
)

// Modifiers 修饰键位集合
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModAlt
	ModShift
	ModWin
)

var modifierNames = map[string]Modifiers{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"menu":    ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
}

// modifierKeys 钩子按键标识到修饰键的映射，左右键等价
var modifierKeys = map[string]Modifiers{
	"CONTROL":  ModCtrl,
	"Lcontrol": ModCtrl,
	"Rcontrol": ModCtrl,
	"Menu":     ModAlt,
	"Lmenu":    ModAlt,
	"Rmenu":    ModAlt,
	"SHIFT":    ModShift,
	"Lshift":   ModShift,
	"Rshift":   ModShift,
	"Lwin":     ModWin,
	"Rwin":     ModWin,
}

// ModifiersOf 从按下的按键中提取修饰键集合
func ModifiersOf(pressed []string) Modifiers {
	var m Modifiers
	for _, key := range pressed {
		m |= modifierKeys[key]
	}
	return m
}

// String 返回 "Ctrl+Alt" 形式
func (m Modifiers) String() string {
	var parts []string
	if m&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if m&ModWin != 0 {
		parts = append(parts, "Win")
	}
	return strings.Join(parts, "+")
}
