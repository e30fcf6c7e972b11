package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// EventBatcher 事件批量处理器
//
// 将事件收集成批次，按大小或超时触发输出。命令日志用它把逐条的
// 命令事件合并成批量写入。
type EventBatcher struct {
	// batchSize 批次大小（触发批量处理的事件数量）
	batchSize int

	// timeout 超时时间（最大等待时间）
	timeout time.Duration

	// input 输入通道，接收待处理事件
	input chan Event

	// output 输出通道，发送批量事件
	output chan []Event

	// buffer 事件缓冲区
	buffer []Event

	// dropped 被丢弃的事件数（输入或输出通道满）
	dropped atomic.Int64

	// isRunning 运行状态标志
	isRunning bool

	// mu 互斥锁，保护 buffer 与状态
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEventBatcher 创建事件批量处理器
//
// Parameters:
//   - batchSize: 批次大小（小于 1 时按 1 处理）
//   - timeout: 超时时间
//
// Returns: *EventBatcher - 新创建的事件批量处理器实例
func NewEventBatcher(batchSize int, timeout time.Duration) *EventBatcher {
	if batchSize < 1 {
		batchSize = 1
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBatcher{
		batchSize: batchSize,
		timeout:   timeout,
		input:     make(chan Event, batchSize*4),
		output:    make(chan []Event, 16),
		buffer:    make([]Event, 0, batchSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动批量处理器，重复调用直接返回
func (b *EventBatcher) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isRunning {
		return nil
	}

	b.isRunning = true
	b.wg.Add(1)
	go b.processLoop()

	return nil
}

// Stop 停止批量处理器
//
// 把输入通道中剩余的事件收进缓冲区，最后刷新一次并关闭输出通道。
func (b *EventBatcher) Stop() {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = false
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	for drained := false; !drained; {
		select {
		case event := <-b.input:
			b.buffer = append(b.buffer, event)
			if len(b.buffer) >= b.batchSize {
				b.flush()
			}
		default:
			drained = true
		}
	}
	b.flush()
	b.mu.Unlock()

	close(b.output)
}

// Add 添加事件到批量处理器
//
// 非阻塞操作，输入通道满时丢弃事件。
//
// Returns: bool - true 表示添加成功，false 表示事件被丢弃
func (b *EventBatcher) Add(event Event) bool {
	select {
	case b.input <- event:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Output 获取输出通道（只读），Stop 后关闭
func (b *EventBatcher) Output() <-chan []Event {
	return b.output
}

// Flush 立即把缓冲区打包输出
func (b *EventBatcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flush()
}

// flush 内部刷新方法（调用方持有锁）
func (b *EventBatcher) flush() {
	if len(b.buffer) == 0 {
		return
	}

	batch := make([]Event, len(b.buffer))
	copy(batch, b.buffer)
	b.buffer = b.buffer[:0]

	select {
	case b.output <- batch:
	default:
		b.dropped.Add(int64(len(batch)))
	}
}

// processLoop 后台处理循环
func (b *EventBatcher) processLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.timeout)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return

		case event := <-b.input:
			b.mu.Lock()
			b.buffer = append(b.buffer, event)
			if len(b.buffer) >= b.batchSize {
				b.flush()
			}
			b.mu.Unlock()

		case <-ticker.C:
			b.Flush()
		}
	}
}

// GetBufferSize 获取当前缓冲区中的事件数量
func (b *EventBatcher) GetBufferSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// Dropped 返回被丢弃的事件总数
func (b *EventBatcher) Dropped() int64 {
	return b.dropped.Load()
}

// IsRunning 检查运行状态
func (b *EventBatcher) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isRunning
}
