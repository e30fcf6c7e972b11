//go:build windows

package platform

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"github.com/chenyang-zz/lrkeys/internal/sendkeys"
)

const (
	inputKeyboard = 1

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfUnicode     = 0x0004
)

type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input INPUT 结构，联合体部分按 32 字节保留（amd64）
type input struct {
	Type uint32
	_    uint32
	Data [32]byte
}

var procSendInput = modUser32.NewProc("SendInput")

// SendKeys 通过 SendInput 合成按键序列
//
// 序列语法见 sendkeys 包。整串击键一次性提交，系统保证不会与其他
// 输入交错。
func SendKeys(seq string) error {
	strokes, err := sendkeys.Parse(seq)
	if err != nil {
		return err
	}

	inputs := make([]input, 0, len(strokes))
	for _, s := range strokes {
		inputs = append(inputs, strokeInputs(s)...)
	}
	return send(inputs)
}

func send(inputs []input) error {
	if len(inputs) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return fmt.Errorf("SendInput: %d of %d inputs sent: %w", n, len(inputs), err)
	}
	return nil
}

func strokeInputs(s sendkeys.Stroke) []input {
	var flags uint32
	if s.Up {
		flags |= keyeventfKeyUp
	}

	if s.VK != 0 {
		if isExtendedVK(s.VK) {
			flags |= keyeventfExtendedKey
		}
		return []input{keyInput(s.VK, 0, flags)}
	}

	units := utf16.Encode([]rune{s.Char})
	out := make([]input, 0, len(units))
	for _, u := range units {
		out = append(out, keyInput(0, u, flags|keyeventfUnicode))
	}
	return out
}

func keyInput(vk, scan uint16, flags uint32) input {
	var in input
	in.Type = inputKeyboard
	ki := (*keybdInput)(unsafe.Pointer(&in.Data[0]))
	ki.WVk = vk
	ki.WScan = scan
	ki.DwFlags = flags
	return in
}

func isExtendedVK(vk uint16) bool {
	switch vk {
	case 0x21, 0x22, 0x23, 0x24: // pgup, pgdn, end, home
		return true
	case 0x25, 0x26, 0x27, 0x28: // arrows
		return true
	case 0x2D, 0x2E: // ins, del
		return true
	case 0x5B, 0x5C, 0x5D: // win, apps
		return true
	case 0x6F, 0x90: // divide, numlock
		return true
	case 0xA3, 0xA5: // rcontrol, rmenu
		return true
	default:
		return false
	}
}
