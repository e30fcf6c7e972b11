package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/**
 * TestNewEventBus 测试创建事件总线
 */
func TestNewEventBus(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	assert.NotNil(t, bus)
	assert.False(t, bus.stopped.Load(), "Expected bus to be running")
}

/**
 * TestSubscribe 测试订阅并异步接收事件
 */
func TestSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	received := make(chan Event, 1)
	id := bus.Subscribe(string(EventTypeSessionConnected), func(event Event) error {
		received <- event
		return nil
	})
	assert.NotEmpty(t, id)

	event := NewEvent(EventTypeSessionConnected, map[string]interface{}{"path": "x.exe"})
	require.NoError(t, bus.Publish(string(EventTypeSessionConnected), *event))

	select {
	case got := <-received:
		assert.Equal(t, event.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("未收到事件")
	}
}

/**
 * TestSubscribeWildcard 测试通配符订阅
 */
func TestSubscribeWildcard(t *testing.T) {
	bus := NewEventBus(WithAsyncDisabled())

	var count int
	bus.Subscribe("*", func(event Event) error {
		count++
		return nil
	})

	for _, typ := range []EventType{EventTypeCommandDispatched, EventTypeCommandSkipped, EventTypeCommandFailed} {
		require.NoError(t, bus.Publish(string(typ), *NewEvent(typ, nil)))
	}

	assert.Equal(t, 3, count)
}

/**
 * TestSubscribeWithFilter 测试带过滤器的订阅
 */
func TestSubscribeWithFilter(t *testing.T) {
	bus := NewEventBus(WithAsyncDisabled())

	var kinds []string
	bus.SubscribeWithFilter(string(EventTypeCommandDispatched), func(event Event) error {
		kinds = append(kinds, event.Data["kind"].(string))
		return nil
	}, func(event Event) bool {
		return event.Data["kind"] == "click"
	})

	for _, kind := range []string{"click", "keys", "click"} {
		data := CommandEventData{Kind: kind}.ToMap()
		require.NoError(t, bus.Publish(string(EventTypeCommandDispatched), *NewEvent(EventTypeCommandDispatched, data)))
	}

	assert.Equal(t, []string{"click", "click"}, kinds)
}

/**
 * TestUnsubscribe 测试取消订阅后不再接收事件
 */
func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	var count atomic.Int32
	id := bus.Subscribe("test", func(event Event) error {
		count.Add(1)
		return nil
	})

	assert.True(t, bus.Unsubscribe(id))
	assert.False(t, bus.Unsubscribe(id), "重复取消应返回 false")

	// 取消后发布不应 panic（通道已关闭）
	assert.NotPanics(t, func() {
		_ = bus.Publish("test", *NewEvent("test", nil))
	})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

/**
 * TestEventContext 测试事件上下文
 */
func TestEventContext(t *testing.T) {
	event := NewEvent(EventTypeSessionConnected, nil).
		WithContext(&EventContext{SessionID: "s-1", TargetPath: "Lightroom.exe"})

	assert.Equal(t, "s-1", event.SessionID())
	assert.Equal(t, "Lightroom.exe", event.Context.TargetPath)
	assert.Empty(t, NewEvent("x", nil).SessionID())
}

/**
 * TestRecoveryMiddleware 测试恢复中间件
 */
func TestRecoveryMiddleware(t *testing.T) {
	bus := NewEventBus(WithAsyncDisabled())
	bus.Use(RecoveryMiddleware())
	bus.Use(LoggingMiddleware())

	bus.Subscribe("panic", func(event Event) error {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		_ = bus.Publish("panic", *NewEvent("panic", nil))
	})
}

/**
 * TestStop 测试停止后拒绝发布
 */
func TestStop(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe("test", func(event Event) error { return nil })

	require.NoError(t, bus.Stop(time.Second))
	assert.Error(t, bus.Publish("test", *NewEvent("test", nil)))

	// 重复停止幂等
	assert.NoError(t, bus.Stop(time.Second))
}

/**
 * TestConcurrentPublish 测试并发发布
 */
func TestConcurrentPublish(t *testing.T) {
	bus := NewEventBus(WithAsyncBufferSize(1000))

	var count atomic.Int32
	bus.Subscribe("test", func(event Event) error {
		count.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = bus.Publish("test", *NewEvent("test", nil))
			}
		}()
	}
	wg.Wait()

	// Stop 会先处理完通道内剩余事件
	require.NoError(t, bus.Stop(5*time.Second))
	assert.Equal(t, int32(500), count.Load())
}
