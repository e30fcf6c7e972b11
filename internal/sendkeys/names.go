package sendkeys

import (
	"fmt"
	"strings"
)

// codes 花括号内可用的按键名
//
// 同一个虚拟键码的第一个名字作为 KeyName 的显示名。
var codes = []struct {
	name string
	vk   uint16
}{
	{"Ctrl", VKControl}, {"VK_CONTROL", VKControl},
	{"Alt", VKMenu}, {"VK_MENU", VKMenu},
	{"Shift", VKShift}, {"VK_SHIFT", VKShift},
	{"ENTER", VKReturn}, {"VK_RETURN", VKReturn},
	{"BACKSPACE", 0x08}, {"BACK", 0x08}, {"BKSP", 0x08}, {"BS", 0x08}, {"VK_BACK", 0x08},
	{"BREAK", 0x03}, {"VK_CANCEL", 0x03},
	{"CAPSLOCK", 0x14}, {"CAP", 0x14}, {"VK_CAPITAL", 0x14},
	{"DELETE", 0x2E}, {"DEL", 0x2E}, {"VK_DELETE", 0x2E},
	{"DOWN", 0x28}, {"VK_DOWN", 0x28},
	{"END", 0x23}, {"VK_END", 0x23},
	{"ESC", 0x1B}, {"VK_ESCAPE", 0x1B},
	{"HELP", 0x2F}, {"VK_HELP", 0x2F},
	{"HOME", 0x24}, {"VK_HOME", 0x24},
	{"INSERT", 0x2D}, {"INS", 0x2D}, {"VK_INSERT", 0x2D},
	{"LEFT", 0x25}, {"VK_LEFT", 0x25},
	{"LWIN", 0x5B}, {"VK_LWIN", 0x5B},
	{"RWIN", 0x5C}, {"VK_RWIN", 0x5C},
	{"APPS", 0x5D}, {"VK_APPS", 0x5D},
	{"NUMLOCK", 0x90}, {"VK_NUMLOCK", 0x90},
	{"PGDN", 0x22}, {"VK_NEXT", 0x22},
	{"PGUP", 0x21}, {"VK_PRIOR", 0x21},
	{"PRTSC", 0x2C}, {"VK_SNAPSHOT", 0x2C},
	{"PAUSE", 0x13}, {"VK_PAUSE", 0x13},
	{"RIGHT", 0x27}, {"VK_RIGHT", 0x27},
	{"SCROLLLOCK", 0x91}, {"VK_SCROLL", 0x91},
	{"SPACE", 0x20}, {"VK_SPACE", 0x20},
	{"TAB", 0x09}, {"VK_TAB", 0x09},
	{"UP", 0x26}, {"VK_UP", 0x26},
	{"VK_LSHIFT", 0xA0}, {"VK_RSHIFT", 0xA1},
	{"VK_LCONTROL", 0xA2}, {"VK_RCONTROL", 0xA3},
	{"VK_LMENU", 0xA4}, {"RMENU", 0xA5}, {"VK_RMENU", 0xA5},
	{"VK_MULTIPLY", 0x6A}, {"VK_ADD", 0x6B}, {"VK_SEPARATOR", 0x6C},
	{"VK_SUBTRACT", 0x6D}, {"VK_DECIMAL", 0x6E}, {"VK_DIVIDE", 0x6F},
}

var (
	byName map[string]uint16
	byCode map[uint16]string
)

func init() {
	byName = make(map[string]uint16)
	byCode = make(map[uint16]string)

	add := func(name string, vk uint16) {
		byName[strings.ToUpper(name)] = vk
		if _, ok := byCode[vk]; !ok {
			byCode[vk] = name
		}
	}

	for _, c := range codes {
		add(c.name, c.vk)
	}
	for i := uint16(1); i <= 24; i++ {
		add(fmt.Sprintf("F%d", i), 0x6F+i)
		add(fmt.Sprintf("VK_F%d", i), 0x6F+i)
	}
	for i := uint16(0); i <= 9; i++ {
		add(fmt.Sprintf("VK_NUMPAD%d", i), 0x60+i)
	}
}

// LookupKey 按名字查找虚拟键码，不区分大小写
func LookupKey(name string) (uint16, bool) {
	vk, ok := byName[strings.ToUpper(name)]
	return vk, ok
}

// KeyName 返回虚拟键码的显示名
func KeyName(vk uint16) string {
	if name, ok := byCode[vk]; ok {
		return name
	}
	if (vk >= '0' && vk <= '9') || (vk >= 'A' && vk <= 'Z') {
		return string(rune(vk))
	}
	return fmt.Sprintf("VK_0x%02X", vk)
}
