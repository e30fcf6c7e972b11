package platform

import (
	"fmt"
)

// keyNames 虚拟键码到按键标识的映射
//
// 标识沿用 pywinauto win32_hooks.ID_TO_KEY 的命名，绑定表中的键名与之一致。
var keyNames = map[uint32]string{
	0x01: "LButton", 0x02: "RButton", 0x03: "Cancel", 0x04: "MButton",
	0x05: "XButton1", 0x06: "XButton2",
	0x08: "Back", 0x09: "Tab", 0x0C: "Clear", 0x0D: "Return",
	0x10: "SHIFT", 0x11: "CONTROL", 0x12: "Menu", 0x13: "Pause", 0x14: "Capital",
	0x15: "Kana", 0x17: "Junja", 0x18: "Final", 0x19: "Kanji",
	0x1B: "Escape", 0x1C: "Convert", 0x1D: "NonConvert", 0x1E: "Accept", 0x1F: "ModeChange",
	0x20: "Space", 0x21: "Prior", 0x22: "Next", 0x23: "End", 0x24: "Home",
	0x25: "Left", 0x26: "Up", 0x27: "Right", 0x28: "Down",
	0x29: "Select", 0x2A: "Print", 0x2B: "Execute", 0x2C: "Snapshot",
	0x2D: "Insert", 0x2E: "Delete", 0x2F: "Help",
	0x5B: "Lwin", 0x5C: "Rwin", 0x5D: "App", 0x5F: "Sleep",
	0x6A: "Multiply", 0x6B: "Add", 0x6C: "Separator", 0x6D: "Subtract",
	0x6E: "Decimal", 0x6F: "Divide",
	0x90: "Numlock", 0x91: "Scroll",
	0xA0: "Lshift", 0xA1: "Rshift", 0xA2: "Lcontrol", 0xA3: "Rcontrol",
	0xA4: "Lmenu", 0xA5: "Rmenu",
	0xA6: "BrowserBack", 0xA7: "BrowserForward", 0xA8: "BrowserRefresh",
	0xA9: "BrowserStop", 0xAA: "BrowserSearch", 0xAB: "BrowserFavorites", 0xAC: "BrowserHome",
	0xAD: "VolumeMute", 0xAE: "VolumeDown", 0xAF: "VolumeUp",
	0xB0: "MediaNextTrack", 0xB1: "MediaPrevTrack", 0xB2: "MediaStop", 0xB3: "MediaPlayPause",
	0xB4: "LaunchMail", 0xB5: "LaunchMediaSelect", 0xB6: "LaunchApp1", 0xB7: "LaunchApp2",
	0xBA: "Oem1", 0xBB: "OemPlus", 0xBC: "OemComma", 0xBD: "OemMinus", 0xBE: "OemPeriod",
	0xBF: "Oem2", 0xC0: "Oem3", 0xDB: "Oem4", 0xDC: "Oem5", 0xDD: "Oem6", 0xDE: "Oem7",
	0xDF: "Oem8", 0xE2: "Oem102", 0xE5: "ProcessKey", 0xE7: "Packet",
	0xF6: "Attn", 0xF7: "CrSel", 0xF8: "ExSel", 0xF9: "ErEOF", 0xFA: "Play",
	0xFB: "Zoom", 0xFD: "PA1", 0xFE: "OemClear",
}

func init() {
	for vk := uint32('0'); vk <= '9'; vk++ {
		keyNames[vk] = string(rune(vk))
	}
	for vk := uint32('A'); vk <= 'Z'; vk++ {
		keyNames[vk] = string(rune(vk))
	}
	for i := uint32(0); i <= 9; i++ {
		keyNames[0x60+i] = fmt.Sprintf("Numpad%d", i)
	}
	for i := uint32(1); i <= 24; i++ {
		keyNames[0x6F+i] = fmt.Sprintf("F%d", i)
	}

	keyCodes = make(map[string]uint32, len(keyNames))
	for vk, name := range keyNames {
		keyCodes[name] = vk
	}
}

// KeyName 返回虚拟键码对应的按键标识
//
// 未知键码返回 "VK_0xNN" 形式，不会与任何绑定冲突。
func KeyName(vk uint32) string {
	if name, ok := keyNames[vk]; ok {
		return name
	}
	return fmt.Sprintf("VK_0x%02X", vk)
}

// IsKnownKey 检查按键标识是否能由钩子产生
func IsKnownKey(name string) bool {
	_, ok := keyCodes[name]
	return ok
}

// keyCodes 按键标识到虚拟键码的反向映射
var keyCodes map[string]uint32

// pressedKeys 当前按下的按键集合
//
// 只在钩子线程上访问。
type pressedKeys struct {
	keys []string
}

// update 按事件更新集合并返回快照
func (p *pressedKeys) update(key string, transition KeyTransition) []string {
	idx := -1
	for i, k := range p.keys {
		if k == key {
			idx = i
			break
		}
	}

	switch transition {
	case KeyDown:
		if idx < 0 {
			p.keys = append(p.keys, key)
		}
	case KeyUp:
		if idx >= 0 {
			p.keys = append(p.keys[:idx], p.keys[idx+1:]...)
		}
	}

	snapshot := make([]string, len(p.keys))
	copy(snapshot, p.keys)
	return snapshot
}

func (p *pressedKeys) reset() {
	p.keys = nil
}
