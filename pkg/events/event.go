/**
 * Package events 提供事件系统的核心类型定义
 *
 * 事件用于在会话生命周期与命令执行之间传递状态：
 * - 会话发布连接 / 断开事件
 * - 分发器发布命令执行结果
 * - 日志与命令日志（journal）订阅这些事件
 *
 * 注意：键盘钩子回调路径上不发布任何事件。
 */

package events

import (
	"time"

	"github.com/google/uuid"
)

/**
 * EventType 事件类型枚举
 */
type EventType string

/**
 * 所有事件类型常量
 */
const (
	// 会话事件
	EventTypeSessionConnected    EventType = "session.connected"    // 会话已连接
	EventTypeSessionDisconnected EventType = "session.disconnected" // 会话已断开

	// 命令事件
	EventTypeCommandDispatched EventType = "command.dispatched" // 命令执行完成
	EventTypeCommandSkipped    EventType = "command.skipped"    // 目标句柄失效，命令跳过
	EventTypeCommandFailed     EventType = "command.failed"     // 命令执行失败（含 panic）

	// 系统事件
	EventTypeError EventType = "error" // 错误事件
)

/**
 * Event 统一事件结构
 */
type Event struct {
	// ID 事件唯一标识符
	ID string `json:"id"`

	// Type 事件类型
	Type EventType `json:"type"`

	// Timestamp 事件发生时间
	Timestamp time.Time `json:"timestamp"`

	// Data 事件数据（类型特定的数据）
	Data map[string]interface{} `json:"data"`

	// Context 事件上下文信息
	Context *EventContext `json:"context,omitempty"`
}

/**
 * EventContext 事件上下文
 *
 * 描述事件所属的会话与目标窗口
 */
type EventContext struct {
	// SessionID 会话 ID
	SessionID string `json:"session_id,omitempty"`

	// TargetPath 目标应用可执行文件路径
	TargetPath string `json:"target_path,omitempty"`

	// WindowTitle 目标窗口标题
	WindowTitle string `json:"window_title,omitempty"`
}

/**
 * NewEvent 创建新事件
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - data: 事件数据
 *
 * Returns:
 *   - *Event: 新创建的事件
 */
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		ID:        NewID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

/**
 * WithContext 设置事件上下文，支持链式调用
 */
func (e *Event) WithContext(context *EventContext) *Event {
	e.Context = context
	return e
}

/**
 * SessionID 返回事件所属会话，没有上下文时为空
 */
func (e *Event) SessionID() string {
	if e.Context == nil {
		return ""
	}
	return e.Context.SessionID
}

/**
 * NewID 生成全局唯一 ID
 *
 * 事件与会话共用，使用 UUID v4
 */
func NewID() string {
	return uuid.New().String()
}

/**
 * CommandEventData 命令事件数据
 */
type CommandEventData struct {
	Seq      uint64 `json:"seq"`       // 命令序号（入队顺序）
	Kind     string `json:"kind"`      // click / keys / terminate
	Key      string `json:"key"`       // 触发按键
	Target   string `json:"target"`    // 点击目标名称或按键序列
	Duration int64  `json:"duration"`  // 执行耗时（微秒）
	Error    string `json:"error"`     // 失败原因
}

/**
 * ToMap 转换为事件数据
 */
func (d CommandEventData) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"seq":      d.Seq,
		"kind":     d.Kind,
		"key":      d.Key,
		"target":   d.Target,
		"duration": d.Duration,
	}
	if d.Error != "" {
		m["error"] = d.Error
	}
	return m
}
