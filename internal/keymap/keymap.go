// Package keymap 按键绑定表
//
// 绑定表把按键标识映射到动作：点击一个命名按钮、发送一段按键序列，
// 或者结束会话。构造后只读，可在任意线程并发查询。
//
// 绑定键支持两种写法：
//   - "Numpad7"：只看当前按键，不关心修饰键状态
//   - "Ctrl+Numpad7"：要求按下的修饰键集合完全一致，优先于单键绑定
package keymap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/chenyang-zz/lrkeys/internal/sendkeys"
)

// ActionKind 动作类型
type ActionKind int

const (
	// ActionClick 点击命名按钮
	ActionClick ActionKind = iota + 1
	// ActionKeys 发送按键序列
	ActionKeys
	// ActionQuit 结束会话
	ActionQuit
)

// String 返回 click / keys / quit
func (k ActionKind) String() string {
	switch k {
	case ActionClick:
		return "click"
	case ActionKeys:
		return "keys"
	case ActionQuit:
		return "quit"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action 绑定的动作模板
type Action struct {
	Kind ActionKind

	// Target 点击目标名称（ActionClick）
	Target string

	// Keys 按键序列（ActionKeys）
	Keys string
}

// Click 创建点击动作
func Click(target string) Action { return Action{Kind: ActionClick, Target: target} }

// Keys 创建按键序列动作
func Keys(seq string) Action { return Action{Kind: ActionKeys, Keys: seq} }

// Quit 创建结束会话动作
func Quit() Action { return Action{Kind: ActionQuit} }

// String 返回动作的可读形式，例如 click(BTN_TEMP_MINUS)
func (a Action) String() string {
	switch a.Kind {
	case ActionClick:
		return "click(" + a.Target + ")"
	case ActionKeys:
		return fmt.Sprintf("keys(%q)", a.Keys)
	case ActionQuit:
		return "quit"
	default:
		return a.Kind.String()
	}
}

func (a Action) validate() error {
	switch a.Kind {
	case ActionClick:
		if a.Target == "" {
			return fmt.Errorf("click action without target")
		}
	case ActionKeys:
		if a.Keys == "" {
			return fmt.Errorf("keys action without sequence")
		}
		if err := sendkeys.Validate(a.Keys); err != nil {
			return err
		}
	case ActionQuit:
	default:
		return fmt.Errorf("unknown action kind %d", int(a.Kind))
	}
	return nil
}

// Binding 一条绑定
type Binding struct {
	// Chord 绑定键，例如 "Numpad7"、"Ctrl+Numpad7"
	Chord string

	// Key 按键标识
	Key string

	// Modifiers 要求的修饰键，0 表示不关心
	Modifiers Modifiers

	Action Action
}

// Table 按键绑定表
type Table struct {
	plain    map[string]Action
	chords   map[string][]Binding
	bindings []Binding
}

// NewTable 构造绑定表
//
// Parameters:
//   - bindings: 绑定键 -> 动作
//
// Returns:
//   - *Table: 绑定表
//   - error: 绑定键无法解析、按键标识未知、动作不合法或绑定冲突时返回错误
func NewTable(bindings map[string]Action) (*Table, error) {
	t := &Table{
		plain:  make(map[string]Action),
		chords: make(map[string][]Binding),
	}

	seen := make(map[string]string)
	for chord, action := range bindings {
		key, mods, err := ParseChord(chord)
		if err != nil {
			return nil, err
		}
		if err := action.validate(); err != nil {
			return nil, fmt.Errorf("binding %s: %w", chord, err)
		}

		canonical := formatChord(key, mods)
		if other, dup := seen[canonical]; dup {
			return nil, fmt.Errorf("bindings %s and %s collide", other, chord)
		}
		seen[canonical] = chord

		b := Binding{Chord: canonical, Key: key, Modifiers: mods, Action: action}
		if mods == 0 {
			t.plain[key] = action
		} else {
			t.chords[key] = append(t.chords[key], b)
		}
		t.bindings = append(t.bindings, b)
	}

	sort.Slice(t.bindings, func(i, j int) bool {
		return t.bindings[i].Chord < t.bindings[j].Chord
	})
	return t, nil
}

// Lookup 查找按键对应的动作
//
// 在钩子回调线程上调用，只做内存查找。
//
// Parameters:
//   - key: 当前按键标识
//   - pressed: 当前按下的按键（用于匹配组合键）
func (t *Table) Lookup(key string, pressed []string) (Action, bool) {
	if t == nil {
		return Action{}, false
	}

	if chords := t.chords[key]; len(chords) > 0 {
		held := ModifiersOf(pressed)
		for _, b := range chords {
			if b.Modifiers == held {
				return b.Action, true
			}
		}
	}

	action, ok := t.plain[key]
	return action, ok
}

// Bindings 返回所有绑定（按绑定键排序）
func (t *Table) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

// ClickTargets 返回所有点击目标名称（去重、排序）
func (t *Table) ClickTargets() []string {
	seen := make(map[string]bool)
	var targets []string
	for _, b := range t.bindings {
		if b.Action.Kind == ActionClick && !seen[b.Action.Target] {
			seen[b.Action.Target] = true
			targets = append(targets, b.Action.Target)
		}
	}
	sort.Strings(targets)
	return targets
}

// Len 绑定数量
func (t *Table) Len() int {
	return len(t.bindings)
}

// ParseChord 解析绑定键
//
// 格式为 "[Mod+]...Key"，修饰键名不区分大小写：Ctrl/Control、Alt/Menu、
// Shift、Win。按键标识区分大小写，必须是钩子能产生的名字。
func ParseChord(s string) (string, Modifiers, error) {
	if strings.TrimSpace(s) == "" {
		return "", 0, fmt.Errorf("empty binding key")
	}

	parts := strings.Split(s, "+")
	var mods Modifiers
	for _, part := range parts[:len(parts)-1] {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return "", 0, fmt.Errorf("binding %s: unknown modifier %q", s, part)
		}
		mods |= m
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	if !platform.IsKnownKey(key) {
		return "", 0, fmt.Errorf("binding %s: unknown key %q", s, key)
	}
	return key, mods, nil
}

func formatChord(key string, mods Modifiers) string {
	if mods == 0 {
		return key
	}
	return mods.String() + "+" + key
}
