package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chenyang-zz/lrkeys/pkg/events"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"go.uber.org/zap"
)

/**
 * JournalRepository 命令日志存储接口
 */
type JournalRepository interface {
	// SaveBatch 批量保存事件
	SaveBatch(eventList []events.Event) error

	// FindRecent 查询最近的记录，按时间倒序
	FindRecent(limit int) ([]JournalEntry, error)

	// FindBySession 查询某个会话的记录，按时间顺序
	FindBySession(sessionID string, limit int) ([]JournalEntry, error)

	// DeleteOlderThan 删除旧记录
	DeleteOlderThan(cutoff time.Time) (int64, error)

	// Count 记录总数
	Count() (int64, error)
}

/**
 * JournalEntry 一条命令日志记录
 */
type JournalEntry struct {
	ID          string                 `json:"id"`
	Type        events.EventType       `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	SessionID   string                 `json:"session_id,omitempty"`
	TargetPath  string                 `json:"target_path,omitempty"`
	WindowTitle string                 `json:"window_title,omitempty"`
	Seq         uint64                 `json:"seq,omitempty"`
	Kind        string                 `json:"kind,omitempty"`
	Key         string                 `json:"key,omitempty"`
	Target      string                 `json:"target,omitempty"`
	DurationUS  int64                  `json:"duration_us,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

/**
 * EntryFromEvent 把事件展开为日志记录
 *
 * 命令事件的数据字段提升为独立列，其余数据原样保存在 Data 中
 */
func EntryFromEvent(event events.Event) JournalEntry {
	entry := JournalEntry{
		ID:        event.ID,
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	}
	if event.Context != nil {
		entry.SessionID = event.Context.SessionID
		entry.TargetPath = event.Context.TargetPath
		entry.WindowTitle = event.Context.WindowTitle
	}

	entry.Seq = uint64(dataInt(event.Data, "seq"))
	entry.Kind = dataString(event.Data, "kind")
	entry.Key = dataString(event.Data, "key")
	entry.Target = dataString(event.Data, "target")
	entry.DurationUS = dataInt(event.Data, "duration")
	entry.Error = dataString(event.Data, "error")
	return entry
}

func dataString(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// dataInt 读取整数字段，兼容事件内的原生整数与 JSON 解码后的 float64
func dataInt(data map[string]interface{}, key string) int64 {
	switch v := data[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

/**
 * SQLiteJournalRepository SQLite 命令日志实现
 */
type SQLiteJournalRepository struct {
	db *sql.DB
}

var _ JournalRepository = (*SQLiteJournalRepository)(nil)

/**
 * NewSQLiteJournalRepository 创建 SQLite 命令日志仓储
 *
 * Parameters:
 *   - db: 已执行迁移的数据库连接
 *
 * Returns: *SQLiteJournalRepository - 仓储实例
 */
func NewSQLiteJournalRepository(db *sql.DB) *SQLiteJournalRepository {
	return &SQLiteJournalRepository{db: db}
}

const journalColumns = `uuid, type, timestamp, session_id, target_path, window_title,
	seq, kind, key_name, target, duration_us, error, data`

/**
 * SaveBatch 批量保存事件
 *
 * 使用事务和预处理语句，任一条插入失败时整批回滚
 *
 * Parameters:
 *   - eventList: 事件数组
 *
 * Returns: error - 错误信息
 */
func (r *SQLiteJournalRepository) SaveBatch(eventList []events.Event) error {
	if len(eventList) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO journal (` + journalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, event := range eventList {
		entry := EntryFromEvent(event)

		dataJSON, err := json.Marshal(entry.Data)
		if err != nil {
			logger.Warn("序列化事件数据失败",
				zap.String("component", "journal"),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			dataJSON = []byte("{}")
		}

		if _, err := stmt.Exec(
			entry.ID,
			string(entry.Type),
			entry.Timestamp,
			entry.SessionID,
			entry.TargetPath,
			entry.WindowTitle,
			int64(entry.Seq),
			entry.Kind,
			entry.Key,
			entry.Target,
			entry.DurationUS,
			entry.Error,
			string(dataJSON),
		); err != nil {
			return fmt.Errorf("插入记录 %s 失败: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

/**
 * FindRecent 查询最近的记录
 *
 * Parameters:
 *   - limit: 返回数量限制
 *
 * Returns: []JournalEntry - 按时间倒序的记录, error - 错误信息
 */
func (r *SQLiteJournalRepository) FindRecent(limit int) ([]JournalEntry, error) {
	rows, err := r.db.Query(`SELECT `+journalColumns+` FROM journal
		ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

/**
 * FindBySession 查询某个会话的记录
 *
 * Parameters:
 *   - sessionID: 会话 ID
 *   - limit: 返回数量限制
 *
 * Returns: []JournalEntry - 按时间顺序的记录, error - 错误信息
 */
func (r *SQLiteJournalRepository) FindBySession(sessionID string, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Query(`SELECT `+journalColumns+` FROM journal
		WHERE session_id = ? ORDER BY timestamp ASC, id ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询会话记录失败: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan 删除 cutoff 之前的记录，返回删除数量
func (r *SQLiteJournalRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM journal WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("删除旧记录失败: %w", err)
	}
	return result.RowsAffected()
}

// Count 记录总数
func (r *SQLiteJournalRepository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM journal").Scan(&count); err != nil {
		return 0, fmt.Errorf("统计记录失败: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]JournalEntry, error) {
	var entries []JournalEntry

	for rows.Next() {
		var entry JournalEntry
		var eventType string
		var sessionID, targetPath, windowTitle, kind, key, target, errText, dataJSON sql.NullString
		var seq, duration sql.NullInt64

		if err := rows.Scan(
			&entry.ID,
			&eventType,
			&entry.Timestamp,
			&sessionID,
			&targetPath,
			&windowTitle,
			&seq,
			&kind,
			&key,
			&target,
			&duration,
			&errText,
			&dataJSON,
		); err != nil {
			return nil, fmt.Errorf("扫描记录失败: %w", err)
		}

		entry.Type = events.EventType(eventType)
		entry.SessionID = sessionID.String
		entry.TargetPath = targetPath.String
		entry.WindowTitle = windowTitle.String
		entry.Seq = uint64(seq.Int64)
		entry.Kind = kind.String
		entry.Key = key.String
		entry.Target = target.String
		entry.DurationUS = duration.Int64
		entry.Error = errText.String

		if dataJSON.Valid && dataJSON.String != "" {
			if err := json.Unmarshal([]byte(dataJSON.String), &entry.Data); err != nil {
				logger.Warn("反序列化记录数据失败",
					zap.String("component", "journal"),
					zap.String("id", entry.ID),
					zap.Error(err),
				)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历记录失败: %w", err)
	}
	return entries, nil
}
