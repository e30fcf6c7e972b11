// Package sendkeys 解析 SendKeys 风格的按键序列
//
// 语法与 pywinauto / VB SendKeys 一致：
//
//	^ Ctrl    % Alt    + Shift    ~ Enter
//	{NAME}    命名按键，例如 {ENTER}、{F5}、{VK_NUMPAD7}
//	{NAME n}  重复 n 次
//	{+}       任意单个字符的字面量，例如 {^}、{%}、{{}、{}}
//	(...)     修饰键作用于整个分组，例如 +(abc)
//
// 解析结果是一串按下 / 抬起的击键，由平台层交给 SendInput。
package sendkeys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// 修饰键虚拟键码
const (
	VKShift   uint16 = 0x10
	VKControl uint16 = 0x11
	VKMenu    uint16 = 0x12
	VKReturn  uint16 = 0x0D
)

var modifierKeys = map[rune]uint16{
	'^': VKControl,
	'%': VKMenu,
	'+': VKShift,
}

// Stroke 一次击键
//
// VK 非零时按虚拟键码发送；否则按 Unicode 字符 Char 发送。
type Stroke struct {
	VK   uint16
	Char rune
	Up   bool
}

// String 返回可读形式，例如 "down Ctrl"、"up 'a'"
func (s Stroke) String() string {
	dir := "down"
	if s.Up {
		dir = "up"
	}
	if s.VK == 0 {
		return fmt.Sprintf("%s %q", dir, s.Char)
	}
	return dir + " " + KeyName(s.VK)
}

// SyntaxError 按键序列语法错误
type SyntaxError struct {
	Seq string
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sendkeys: %s at position %d in %q", e.Msg, e.Pos, e.Seq)
}

// key 解析出的单个按键
type key struct {
	vk   uint16
	char rune
}

type parser struct {
	seq string
	src []rune
	pos int
	out []Stroke
}

// Parse 解析按键序列
//
// Parameters:
//   - seq: 按键序列，例如 "^%v"
//
// Returns:
//   - []Stroke: 击键列表，修饰键按下顺序按下、逆序抬起
//   - error: 语法错误时返回 *SyntaxError
func Parse(seq string) ([]Stroke, error) {
	p := &parser{seq: seq, src: []rune(seq)}
	if err := p.parseSeq(false); err != nil {
		return nil, err
	}
	return p.out, nil
}

// Validate 检查按键序列能否解析
func Validate(seq string) error {
	_, err := Parse(seq)
	return err
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Seq: p.seq, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseSeq(inGroup bool) error {
	var mods []uint16

	for p.pos < len(p.src) {
		r := p.src[p.pos]

		if vk, ok := modifierKeys[r]; ok {
			mods = append(mods, vk)
			p.pos++
			continue
		}

		switch r {
		case ')':
			if !inGroup {
				return p.errorf("unmatched ')'")
			}
			if len(mods) > 0 {
				return p.errorf("modifier without key")
			}
			p.pos++
			return nil

		case '(':
			p.pos++
			p.press(mods)
			if err := p.parseSeq(true); err != nil {
				return err
			}
			p.release(mods)

		case '{':
			k, count, err := p.parseBrace()
			if err != nil {
				return err
			}
			p.emit(mods, k, count)

		case '~':
			p.pos++
			p.emit(mods, key{vk: VKReturn}, 1)

		default:
			p.pos++
			p.emit(mods, literal(r, len(mods) > 0), 1)
		}
		mods = nil
	}

	if inGroup {
		return p.errorf("missing ')'")
	}
	if len(mods) > 0 {
		return p.errorf("modifier without key")
	}
	return nil
}

// parseBrace 解析 {NAME} / {NAME n} / {c}
func (p *parser) parseBrace() (key, int, error) {
	start := p.pos
	p.pos++ // '{'

	// {}} 与 {{} 的第一个字符本身就是字面量
	end := -1
	for i := p.pos + 1; i < len(p.src); i++ {
		if p.src[i] == '}' {
			end = i
			break
		}
	}
	if end < 0 {
		p.pos = start
		return key{}, 0, p.errorf("unclosed '{'")
	}

	body := string(p.src[p.pos:end])
	p.pos = end + 1

	name, count := body, 1
	if i := strings.LastIndexByte(body, ' '); i > 0 {
		n, err := strconv.Atoi(body[i+1:])
		if err != nil || n < 0 {
			p.pos = start
			return key{}, 0, p.errorf("invalid repeat count %q", body[i+1:])
		}
		name, count = body[:i], n
	}

	if runes := []rune(name); len(runes) == 1 {
		return literal(runes[0], false), count, nil
	}

	vk, ok := LookupKey(name)
	if !ok {
		p.pos = start
		return key{}, 0, p.errorf("unknown key {%s}", name)
	}
	return key{vk: vk}, count, nil
}

// literal 字符按键；有修饰键时字母和数字改用虚拟键码，保证组合键生效
func literal(r rune, modified bool) key {
	if modified && r < unicode.MaxASCII {
		switch {
		case r >= 'a' && r <= 'z':
			return key{vk: uint16(unicode.ToUpper(r))}
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			return key{vk: uint16(r)}
		}
	}
	return key{char: r}
}

func (p *parser) press(mods []uint16) {
	for _, vk := range mods {
		p.out = append(p.out, Stroke{VK: vk})
	}
}

func (p *parser) release(mods []uint16) {
	for i := len(mods) - 1; i >= 0; i-- {
		p.out = append(p.out, Stroke{VK: mods[i], Up: true})
	}
}

func (p *parser) emit(mods []uint16, k key, count int) {
	p.press(mods)
	for i := 0; i < count; i++ {
		p.out = append(p.out,
			Stroke{VK: k.vk, Char: k.char},
			Stroke{VK: k.vk, Char: k.char, Up: true},
		)
	}
	p.release(mods)
}
