package automation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/chenyang-zz/lrkeys/pkg/events"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"go.uber.org/zap"
)

// Dispatcher 命令分发器
//
// 队列唯一的消费者。按入队顺序逐条执行命令：
//   - Click：句柄为空或已失效时静默跳过，否则连续点击两次
//   - KeySequence：合成一次按键序列
//   - Terminate：退出循环
//
// 分发器从不向外抛错：执行失败和 panic 只记录日志并发布 command.failed。
type Dispatcher struct {
	queue    *Queue
	keys     platform.KeySender
	bus      *events.EventBus
	eventCtx *events.EventContext

	done      chan struct{}
	startOnce sync.Once
}

// NewDispatcher 创建命令分发器
//
// Parameters:
//   - queue: 命令队列
//   - keys: 按键序列发送器
//   - bus: 事件总线，可以为 nil
//   - eventCtx: 发布事件时附带的上下文，可以为 nil
func NewDispatcher(queue *Queue, keys platform.KeySender, bus *events.EventBus, eventCtx *events.EventContext) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		keys:     keys,
		bus:      bus,
		eventCtx: eventCtx,
		done:     make(chan struct{}),
	}
}

// Start 在独立 goroutine 中运行分发循环，重复调用无效
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Done 分发循环退出后关闭
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	logger.Debug("分发器启动", zap.String("component", "dispatcher"))

	for {
		cmd, err := d.queue.Pop(context.Background())
		if err != nil {
			return
		}
		if cmd.Kind() == CommandTerminate {
			logger.Debug("分发器退出",
				zap.String("component", "dispatcher"),
				zap.Uint64("seq", cmd.Seq()),
			)
			return
		}
		d.dispatch(cmd)
	}
}

// dispatch 执行单条命令，panic 在这里被截获
func (d *Dispatcher) dispatch(cmd Command) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logger.Error("命令执行 panic",
				zap.String("component", "dispatcher"),
				zap.String("command", cmd.String()),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			d.publish(events.EventTypeCommandFailed, cmd, time.Since(start), err)
		}
	}()

	switch cmd.Kind() {
	case CommandClick:
		handle := cmd.Handle()
		if handle == nil || !handle.IsAlive() {
			logger.Debug("点击目标不可用，跳过",
				zap.String("component", "dispatcher"),
				zap.String("command", cmd.String()),
			)
			d.publish(events.EventTypeCommandSkipped, cmd, time.Since(start), nil)
			return
		}
		// 目标控件只响应第二次点击，两次调用都要执行
		err := errors.Join(handle.Click(), handle.Click())
		d.finish(cmd, start, err)

	case CommandKeySequence:
		d.finish(cmd, start, d.keys.SendKeys(cmd.Keys()))

	default:
		logger.Warn("未知命令类型",
			zap.String("component", "dispatcher"),
			zap.String("command", cmd.String()),
		)
	}
}

func (d *Dispatcher) finish(cmd Command, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn("命令执行失败",
			zap.String("component", "dispatcher"),
			zap.String("command", cmd.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		d.publish(events.EventTypeCommandFailed, cmd, elapsed, err)
		return
	}

	logger.Debug("命令执行完成",
		zap.String("component", "dispatcher"),
		zap.String("command", cmd.String()),
		zap.Duration("elapsed", elapsed),
	)
	d.publish(events.EventTypeCommandDispatched, cmd, elapsed, nil)
}

func (d *Dispatcher) publish(eventType events.EventType, cmd Command, elapsed time.Duration, err error) {
	if d.bus == nil {
		return
	}

	data := events.CommandEventData{
		Seq:      cmd.Seq(),
		Kind:     cmd.Kind().String(),
		Key:      cmd.Key(),
		Target:   cmd.Target(),
		Duration: elapsed.Microseconds(),
	}
	if cmd.Kind() == CommandKeySequence {
		data.Target = cmd.Keys()
	}
	if err != nil {
		data.Error = err.Error()
	}

	event := events.NewEvent(eventType, data.ToMap()).WithContext(d.eventCtx)
	if pubErr := d.bus.Publish(string(eventType), *event); pubErr != nil {
		logger.Debug("发布命令事件失败",
			zap.String("component", "dispatcher"),
			zap.Error(pubErr),
		)
	}
}
