/**
 * Package storage 提供数据持久化功能
 *
 * 负责把会话与命令事件写入 SQLite 命令日志
 */

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chenyang-zz/lrkeys/pkg/logger"
	_ "github.com/mattn/go-sqlite3" // SQLite 驱动
	"go.uber.org/zap"
)

// MemoryPath 内存数据库路径
const MemoryPath = ":memory:"

/**
 * SQLiteConfig SQLite 配置
 */
type SQLiteConfig struct {
	// Path 数据库文件路径
	Path string

	// MaxOpenConns 最大打开连接数
	MaxOpenConns int

	// MaxIdleConns 最大空闲连接数
	MaxIdleConns int

	// ConnMaxLifetime 连接最大生命周期
	ConnMaxLifetime time.Duration
}

/**
 * DefaultSQLiteConfig 命令日志使用的默认连接配置
 *
 * 只有批量写入器一个写者，连接数保持很小
 */
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:            path,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

/**
 * NewSQLiteDB 创建 SQLite 数据库连接
 *
 * 文件数据库启用 WAL 模式，父目录不存在时自动创建
 *
 * Parameters:
 *   - config: SQLite 配置
 *
 * Returns: *sql.DB - 数据库连接实例, error - 错误信息
 */
func NewSQLiteDB(config SQLiteConfig) (*sql.DB, error) {
	logger.Info("创建 SQLite 数据库连接",
		zap.String("component", "storage"),
		zap.String("path", config.Path),
	)

	memory := config.Path == MemoryPath

	// 内存数据库使用共享缓存，连接池中的连接看到同一个库
	dataSourceName := config.Path
	if memory {
		dataSourceName = "file::memory:?mode=memory&cache=shared"
	} else if dir := filepath.Dir(config.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		logger.Error("打开数据库失败", zap.String("component", "storage"), zap.Error(err))
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if !memory {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				logger.Error("配置数据库失败",
					zap.String("component", "storage"),
					zap.String("pragma", pragma),
					zap.Error(err),
				)
				return nil, fmt.Errorf("执行 %s 失败: %w", pragma, err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		logger.Error("数据库连接验证失败", zap.String("component", "storage"), zap.Error(err))
		return nil, fmt.Errorf("数据库连接验证失败: %w", err)
	}

	logger.Debug("SQLite 数据库连接成功", zap.String("component", "storage"))
	return db, nil
}

/**
 * OpenJournal 打开命令日志数据库并执行迁移
 *
 * Parameters:
 *   - path: 数据库文件路径
 *
 * Returns: *sql.DB - 数据库连接实例, error - 错误信息
 */
func OpenJournal(path string) (*sql.DB, error) {
	db, err := NewSQLiteDB(DefaultSQLiteConfig(path))
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
