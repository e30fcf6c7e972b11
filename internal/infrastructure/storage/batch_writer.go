package storage

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chenyang-zz/lrkeys/pkg/events"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"go.uber.org/zap"
)

/**
 * BatchWriterConfig 批量写入器配置
 */
type BatchWriterConfig struct {
	// BatchSize 批量大小（达到此数量时自动刷新）
	BatchSize int

	// FlushInterval 刷新间隔（定时刷新）
	FlushInterval time.Duration
}

/**
 * DefaultBatchWriterConfig 默认配置
 */
func DefaultBatchWriterConfig() BatchWriterConfig {
	return BatchWriterConfig{
		BatchSize:     50,
		FlushInterval: 2 * time.Second,
	}
}

/**
 * BatchWriterStats 批量写入器统计信息
 */
type BatchWriterStats struct {
	// TotalEvents 接收的事件数
	TotalEvents int64

	// PersistedEvents 成功持久化的事件数
	PersistedEvents int64

	// FailedEvents 写入失败的事件数
	FailedEvents int64

	// DroppedEvents 缓冲区满被丢弃的事件数
	DroppedEvents int64
}

/**
 * BatchWriter 批量写入器
 *
 * 订阅事件总线上的会话与命令事件，经 EventBatcher 合并后批量写入命令日志。
 * 写入失败只记录日志，不影响命令执行。
 */
type BatchWriter struct {
	repo    JournalRepository
	config  BatchWriterConfig
	batcher *events.EventBatcher

	total     atomic.Int64
	persisted atomic.Int64
	failed    atomic.Int64

	mu      sync.Mutex
	wg      sync.WaitGroup
	started bool
	stopped bool
	bus     *events.EventBus
	subID   string
}

/**
 * NewBatchWriter 创建批量写入器
 *
 * Parameters:
 *   - repo: 命令日志仓储
 *   - config: 配置（使用 DefaultBatchWriterConfig() 获取默认配置）
 *
 * Returns: *BatchWriter - 批量写入器实例
 */
func NewBatchWriter(repo JournalRepository, config BatchWriterConfig) *BatchWriter {
	return &BatchWriter{
		repo:    repo,
		config:  config,
		batcher: events.NewEventBatcher(config.BatchSize, config.FlushInterval),
	}
}

/**
 * Start 启动批量写入器
 *
 * 停止后不能再次启动
 */
func (bw *BatchWriter) Start() {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.started || bw.stopped {
		return
	}
	bw.started = true

	_ = bw.batcher.Start()

	bw.wg.Add(1)
	go bw.persistLoop()

	logger.Info("命令日志已启动",
		zap.String("component", "journal"),
		zap.Int("batch_size", bw.config.BatchSize),
		zap.Duration("flush_interval", bw.config.FlushInterval),
	)
}

/**
 * Attach 订阅事件总线上的会话与命令事件
 *
 * Parameters:
 *   - bus: 事件总线
 */
func (bw *BatchWriter) Attach(bus *events.EventBus) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bus == nil || bw.bus != nil {
		return
	}
	bw.bus = bus
	bw.subID = bus.SubscribeWithFilter("*", func(event events.Event) error {
		bw.Write(event)
		return nil
	}, isJournaled)
}

// isJournaled 只记录会话与命令事件
func isJournaled(event events.Event) bool {
	t := string(event.Type)
	return strings.HasPrefix(t, "session.") || strings.HasPrefix(t, "command.")
}

/**
 * Stop 停止批量写入器
 *
 * 取消订阅，刷新剩余事件并等待写入完成
 */
func (bw *BatchWriter) Stop() {
	bw.mu.Lock()
	if !bw.started || bw.stopped {
		bw.mu.Unlock()
		return
	}
	bw.stopped = true
	bus, subID := bw.bus, bw.subID
	bw.mu.Unlock()

	if bus != nil {
		bus.Unsubscribe(subID)
	}

	// Stop 刷新最后一批并关闭输出通道，persistLoop 随之退出
	bw.batcher.Stop()
	bw.wg.Wait()

	stats := bw.Stats()
	logger.Info("命令日志已停止",
		zap.String("component", "journal"),
		zap.Int64("persisted", stats.PersistedEvents),
		zap.Int64("failed", stats.FailedEvents),
		zap.Int64("dropped", stats.DroppedEvents),
	)
}

/**
 * Write 写入单个事件
 *
 * 非阻塞方法，缓冲区满时丢弃事件
 *
 * Returns: bool - 是否成功写入
 */
func (bw *BatchWriter) Write(event events.Event) bool {
	bw.total.Add(1)
	if !bw.batcher.Add(event) {
		logger.Warn("命令日志缓冲区已满，事件丢弃",
			zap.String("component", "journal"),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		return false
	}
	return true
}

/**
 * Flush 把缓冲区中的事件交给写入循环
 */
func (bw *BatchWriter) Flush() {
	bw.batcher.Flush()
}

// persistLoop 逐批写入数据库，输出通道关闭后退出
func (bw *BatchWriter) persistLoop() {
	defer bw.wg.Done()

	for batch := range bw.batcher.Output() {
		start := time.Now()
		if err := bw.repo.SaveBatch(batch); err != nil {
			bw.failed.Add(int64(len(batch)))
			logger.Error("批量写入失败",
				zap.String("component", "journal"),
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
			continue
		}
		bw.persisted.Add(int64(len(batch)))
		logger.Debug("批量写入完成",
			zap.String("component", "journal"),
			zap.Int("count", len(batch)),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

/**
 * IsStarted 检查批量写入器是否正在运行
 */
func (bw *BatchWriter) IsStarted() bool {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.started && !bw.stopped
}

/**
 * Stats 获取统计信息快照
 */
func (bw *BatchWriter) Stats() BatchWriterStats {
	return BatchWriterStats{
		TotalEvents:     bw.total.Load(),
		PersistedEvents: bw.persisted.Load(),
		FailedEvents:    bw.failed.Load(),
		DroppedEvents:   bw.batcher.Dropped(),
	}
}
