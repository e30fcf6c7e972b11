package automation

import (
	"fmt"
	"time"
)

// ActionHandle 可点击的 UI 元素引用
//
// 由 Target 在连接时解析，之后只读；只有分发器会调用 Click。
type ActionHandle interface {
	// Click 模拟一次点击
	Click() error

	// IsAlive 元素是否仍然有效
	IsAlive() bool
}

// CommandKind 命令类型
type CommandKind int

const (
	// CommandClick 点击按钮（固定连点两次）
	CommandClick CommandKind = iota + 1
	// CommandKeySequence 发送按键序列
	CommandKeySequence
	// CommandTerminate 结束分发循环
	CommandTerminate
)

// String 返回 click / keys / terminate
func (k CommandKind) String() string {
	switch k {
	case CommandClick:
		return "click"
	case CommandKeySequence:
		return "keys"
	case CommandTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command 待分发的命令
//
// 构造后不可变；字段只能通过访问方法读取。序号由队列在入队时分配。
type Command struct {
	kind    CommandKind
	seq     uint64
	key     string
	target  string
	handle  ActionHandle
	keys    string
	created time.Time
}

// NewClick 创建点击命令
//
// Parameters:
//   - key: 触发按键
//   - target: 按钮名称
//   - handle: 已解析的元素，可以为 nil（分发时跳过）
func NewClick(key, target string, handle ActionHandle) Command {
	return Command{kind: CommandClick, key: key, target: target, handle: handle, created: time.Now()}
}

// NewKeySequence 创建按键序列命令
func NewKeySequence(key, keys string) Command {
	return Command{kind: CommandKeySequence, key: key, keys: keys, created: time.Now()}
}

// Terminate 创建结束命令
func Terminate() Command {
	return Command{kind: CommandTerminate, created: time.Now()}
}

func (c Command) Kind() CommandKind { return c.kind }
func (c Command) Seq() uint64 { return c.seq }
func (c Command) Key() string { return c.key }
func (c Command) Target() string { return c.target }
func (c Command) Handle() ActionHandle { return c.handle }
func (c Command) Keys() string { return c.keys }
func (c Command) CreatedAt() time.Time { return c.created }

// String 返回命令的可读形式
func (c Command) String() string {
	switch c.kind {
	case CommandClick:
		return fmt.Sprintf("#%d click(%s)", c.seq, c.target)
	case CommandKeySequence:
		return fmt.Sprintf("#%d keys(%q)", c.seq, c.keys)
	default:
		return fmt.Sprintf("#%d %s", c.seq, c.kind)
	}
}
