package automation

import (
	"context"
	"sync"
)

// Queue 无界 FIFO 命令队列
//
// 生产者（钩子线程）调用 Push，永不阻塞、永不失败；唯一的消费者（分发器）
// 调用 Pop 阻塞等待。队列没有容量上限：分发的某个动作卡住时，后续命令
// 会一直堆积。
type Queue struct {
	mu     sync.Mutex
	items  []Command
	next   uint64
	notify chan struct{}
}

// NewQueue 创建命令队列
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Push 追加命令并分配序号
//
// Returns: uint64 - 命令序号，从 1 开始递增
func (q *Queue) Push(cmd Command) uint64 {
	q.mu.Lock()
	q.next++
	cmd.seq = q.next
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return cmd.seq
}

// Pop 取出队首命令，队列为空时阻塞
//
// 只允许一个消费者调用。
//
// Returns:
//   - Command: 队首命令
//   - error: ctx 结束时返回 ctx.Err()
func (q *Queue) Pop(ctx context.Context) (Command, error) {
	for {
		if cmd, ok := q.TryPop(); ok {
			return cmd, nil
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return Command{}, ctx.Err()
		}
	}
}

// TryPop 非阻塞地取出队首命令
func (q *Queue) TryPop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Command{}, false
	}

	cmd := q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return cmd, true
}

// Len 当前排队的命令数
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
