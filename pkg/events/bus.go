/**
 * Package events 提供事件总线实现
 *
 * EventBus 是发布-订阅模式的实现，支持：
 * - 按类型订阅与通配符订阅
 * - 每个订阅者独立的异步投递协程
 * - 中间件链
 * - 优雅关闭
 */

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"go.uber.org/zap"
)

/**
 * EventHandler 事件处理函数类型
 */
type EventHandler func(event Event) error

/**
 * EventFilter 事件过滤器函数类型
 *
 * 返回 true 表示事件应该被处理，false 表示跳过
 */
type EventFilter func(event Event) bool

/**
 * Middleware 中间件类型
 */
type Middleware func(EventHandler) EventHandler

/**
 * Subscriber 订阅者信息
 */
type Subscriber struct {
	// ID 订阅者唯一标识
	ID string

	// Handler 事件处理函数
	Handler EventHandler

	// Filter 事件过滤器（可选）
	Filter EventFilter

	// Chan 订阅者专用通道（用于异步交付）
	Chan chan Event

	// closed 通道是否已关闭，由 mu 保护
	closed bool

	// mu 保护 Chan 的发送和关闭
	mu sync.RWMutex
}

/**
 * EventBus 事件总线
 */
type EventBus struct {
	// subscribers 订阅者映射：事件类型 -> 订阅者列表
	subscribers map[string][]*Subscriber

	// mutex 保护 subscribers 的读写锁
	mutex sync.RWMutex

	// wg 等待组，用于优雅关闭
	wg sync.WaitGroup

	// stopChan 停止信号通道
	stopChan chan struct{}

	// middleware 中间件链
	middleware []Middleware

	// stopped 原子标志，标记总线是否已停止
	stopped atomic.Bool

	// asyncEnabled 是否启用异步投递
	// 关闭时 Publish 在调用方协程内直接执行处理函数
	asyncEnabled bool

	// asyncBufferSize 每个订阅者的缓冲区大小
	asyncBufferSize int

	// seq 订阅者 ID 计数器
	seq atomic.Uint64
}

/**
 * NewEventBus 创建新的事件总线
 *
 * Parameters:
 *   - opts: 配置选项（可选）
 *
 * Returns:
 *   - *EventBus: 新创建的事件总线
 */
func NewEventBus(opts ...Option) *EventBus {
	bus := &EventBus{
		subscribers:     make(map[string][]*Subscriber),
		stopChan:        make(chan struct{}),
		middleware:      make([]Middleware, 0),
		asyncEnabled:    true,
		asyncBufferSize: 256,
	}

	for _, opt := range opts {
		opt(bus)
	}

	return bus
}

/**
 * Option 配置选项类型
 */
type Option func(*EventBus)

/**
 * WithAsyncBufferSize 设置每个订阅者的缓冲区大小
 */
func WithAsyncBufferSize(size int) Option {
	return func(bus *EventBus) {
		if size > 0 {
			bus.asyncBufferSize = size
		}
	}
}

/**
 * WithAsyncDisabled 禁用异步投递
 */
func WithAsyncDisabled() Option {
	return func(bus *EventBus) {
		bus.asyncEnabled = false
	}
}

/**
 * Subscribe 订阅事件
 *
 * Parameters:
 *   - eventType: 事件类型，使用 "*" 订阅所有事件
 *   - handler: 事件处理函数
 *
 * Returns:
 *   - string: 订阅者 ID，用于取消订阅
 */
func (bus *EventBus) Subscribe(eventType string, handler EventHandler) string {
	return bus.subscribe(eventType, handler, nil)
}

/**
 * SubscribeWithFilter 带过滤器订阅事件
 */
func (bus *EventBus) SubscribeWithFilter(eventType string, handler EventHandler, filter EventFilter) string {
	return bus.subscribe(eventType, handler, filter)
}

func (bus *EventBus) subscribe(eventType string, handler EventHandler, filter EventFilter) string {
	subscriber := &Subscriber{
		ID:      fmt.Sprintf("sub-%d", bus.seq.Add(1)),
		Handler: handler,
		Filter:  filter,
	}
	if bus.asyncEnabled {
		subscriber.Chan = make(chan Event, bus.asyncBufferSize)
	}

	bus.mutex.Lock()
	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscriber)
	bus.mutex.Unlock()

	logger.Debug("订阅事件",
		zap.String("component", "events"),
		zap.String("event_type", eventType),
		zap.String("subscriber_id", subscriber.ID),
	)

	if bus.asyncEnabled {
		bus.wg.Add(1)
		go bus.processSubscriber(subscriber)
	}

	return subscriber.ID
}

/**
 * Unsubscribe 取消订阅
 *
 * Parameters:
 *   - subscriberID: 订阅者 ID
 *
 * Returns:
 *   - bool: 是否找到并移除了订阅者
 */
func (bus *EventBus) Unsubscribe(subscriberID string) bool {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	for eventType, subscribers := range bus.subscribers {
		for i, sub := range subscribers {
			if sub.ID != subscriberID {
				continue
			}
			bus.subscribers[eventType] = append(subscribers[:i:i], subscribers[i+1:]...)

			sub.mu.Lock()
			if !sub.closed && sub.Chan != nil {
				close(sub.Chan)
			}
			sub.closed = true
			sub.mu.Unlock()

			logger.Debug("取消订阅",
				zap.String("component", "events"),
				zap.String("event_type", eventType),
				zap.String("subscriber_id", subscriberID),
			)
			return true
		}
	}

	return false
}

/**
 * Publish 发布事件
 *
 * 异步模式下事件投递到每个订阅者的缓冲通道，缓冲区满时丢弃；
 * 同步模式下在当前协程内依次调用处理函数。
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - event: 事件对象
 *
 * Returns:
 *   - error: 总线已停止时返回错误
 */
func (bus *EventBus) Publish(eventType string, event Event) error {
	if bus.stopped.Load() {
		return fmt.Errorf("event bus is stopped")
	}

	bus.mutex.RLock()
	subscribers := bus.getSubscribers(eventType)
	bus.mutex.RUnlock()

	for _, subscriber := range subscribers {
		if subscriber.Filter != nil && !subscriber.Filter(event) {
			continue
		}

		if !bus.asyncEnabled {
			bus.handle(subscriber, event)
			continue
		}

		subscriber.mu.RLock()
		if !subscriber.closed {
			select {
			case subscriber.Chan <- event:
			default:
				logger.Warn("事件缓冲区满，丢弃事件",
					zap.String("component", "events"),
					zap.String("subscriber_id", subscriber.ID),
					zap.String("event_type", eventType),
				)
			}
		}
		subscriber.mu.RUnlock()
	}

	return nil
}

/**
 * Use 添加中间件，按添加顺序执行
 */
func (bus *EventBus) Use(middleware Middleware) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.middleware = append(bus.middleware, middleware)
}

/**
 * Stop 优雅停止事件总线
 *
 * 通知所有订阅协程退出并等待，超时返回错误。重复调用直接返回。
 *
 * Parameters:
 *   - timeout: 超时时间
 */
func (bus *EventBus) Stop(timeout time.Duration) error {
	if bus.stopped.Swap(true) {
		return nil
	}
	close(bus.stopChan)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		bus.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for event bus to stop")
	}
}

/**
 * processSubscriber 订阅者投递循环
 *
 * 总线停止时先把通道内已有事件处理完再退出
 */
func (bus *EventBus) processSubscriber(subscriber *Subscriber) {
	defer bus.wg.Done()

	for {
		select {
		case event, ok := <-subscriber.Chan:
			if !ok {
				return
			}
			bus.handle(subscriber, event)

		case <-bus.stopChan:
			for {
				select {
				case event, ok := <-subscriber.Chan:
					if !ok {
						return
					}
					bus.handle(subscriber, event)
				default:
					return
				}
			}
		}
	}
}

// handle 经过中间件执行处理函数
func (bus *EventBus) handle(subscriber *Subscriber, event Event) {
	bus.mutex.RLock()
	handler := bus.applyMiddleware(subscriber.Handler)
	bus.mutex.RUnlock()

	if err := handler(event); err != nil {
		logger.Error("事件处理错误",
			zap.String("component", "events"),
			zap.String("subscriber_id", subscriber.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}

/**
 * getSubscribers 获取事件类型的所有订阅者（含通配符订阅者）
 */
func (bus *EventBus) getSubscribers(eventType string) []*Subscriber {
	subscribers := make([]*Subscriber, 0)
	subscribers = append(subscribers, bus.subscribers[eventType]...)
	if eventType != "*" {
		subscribers = append(subscribers, bus.subscribers["*"]...)
	}
	return subscribers
}

/**
 * applyMiddleware 应用中间件链（洋葱模型，调用方持有读锁）
 */
func (bus *EventBus) applyMiddleware(handler EventHandler) EventHandler {
	for i := len(bus.middleware) - 1; i >= 0; i-- {
		handler = bus.middleware[i](handler)
	}
	return handler
}

/**
 * RecoveryMiddleware 恢复中间件
 *
 * 防止事件处理函数中的 panic 导致程序崩溃
 */
func RecoveryMiddleware() Middleware {
	return func(next EventHandler) EventHandler {
		return func(event Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(event)
		}
	}
}

/**
 * LoggingMiddleware 日志中间件
 *
 * 以 Debug 级别记录每个被处理的事件
 */
func LoggingMiddleware() Middleware {
	return func(next EventHandler) EventHandler {
		return func(event Event) error {
			logger.Debug("处理事件",
				zap.String("component", "events"),
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
			)
			return next(event)
		}
	}
}
