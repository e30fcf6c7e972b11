package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chenyang-zz/lrkeys/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = `C:\Program Files\Adobe\Adobe Lightroom Classic\Lightroom.exe`

// sessionFixture 会话测试夹具
type sessionFixture struct {
	window *fakeWindow
	target *fakeTarget
	hook   *fakeHook
	keys   *fakeKeys
	minus  *fakeHandle
	plus   *fakeHandle
	bus    *events.EventBus
	opts   Options
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		window: &fakeWindow{title: "Lightroom Classic", grantFocus: true},
		hook:   &fakeHook{},
		keys:   &fakeKeys{},
		minus:  newFakeHandle("BTN_TEMP_MINUS", nil),
		plus:   newFakeHandle("BTN_TEMP_PLUS", nil),
		bus:    events.NewEventBus(events.WithAsyncDisabled()),
	}
	f.target = &fakeTarget{
		window: f.window,
		handles: map[point]ActionHandle{
			{1779, 344}: f.minus,
			{1807, 344}: f.plus,
		},
	}
	f.opts = Options{
		Target:   f.target,
		Hook:     f.hook,
		Keys:     f.keys,
		Bindings: testBindings(t),
		Buttons: []Button{
			{Name: "BTN_TEMP_MINUS", X: 1779, Y: 344},
			{Name: "BTN_TEMP_PLUS", X: 1807, Y: 344},
		},
		FocusTimeout: 50 * time.Millisecond,
		Bus:          f.bus,
	}
	return f
}

func (f *sessionFixture) connect(t *testing.T) *Session {
	t.Helper()
	s, err := Connect(context.Background(), testPath, f.opts)
	require.NoError(t, err)
	require.Equal(t, StateConnected, s.State())
	return s
}

// TestSession_ClickScenario 测试点击绑定的完整流程
//
// 测试场景：
//  1. Numpad7 -> Click(BTN_TEMP_MINUS)
//  2. 窗口激活时依次投递按下与释放
//  3. 断开后分发器处理完命令并退出
//  4. BTN_TEMP_MINUS 恰好被点击两次，队列清空
func TestSession_ClickScenario(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)

	assert.True(t, f.hook.Fire(keyDown("Numpad7")))
	assert.False(t, f.hook.Fire(keyUp("Numpad7")))

	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	assert.Equal(t, 2, f.minus.Clicks())
	assert.Equal(t, 0, f.plus.Clicks())
}

// TestSession_UnfocusedScenario 测试窗口未激活时不产生任何命令
func TestSession_UnfocusedScenario(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)

	f.window.foreground.Store(false)
	assert.False(t, f.hook.Fire(keyDown("Numpad7")))

	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	assert.Equal(t, 0, f.minus.Clicks())
}

// TestSession_KeySequenceScenario 测试按键序列绑定只发送一次
func TestSession_KeySequenceScenario(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)

	assert.True(t, f.hook.Fire(keyDown("Numpad5")))

	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	assert.Equal(t, []string{"^%v"}, f.keys.Sent())
}

// TestSession_ElementUnavailable 测试缺少按钮时连接失败
//
// 连接失败后会话保持 Disconnected，且没有安装钩子。
func TestSession_ElementUnavailable(t *testing.T) {
	f := newSessionFixture(t)
	delete(f.target.handles, point{1807, 344})

	s, err := NewSession(f.opts)
	require.NoError(t, err)

	err = s.Connect(context.Background(), testPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementUnavailable)

	var elementErr *ElementError
	require.True(t, errors.As(err, &elementErr))
	assert.Equal(t, "BTN_TEMP_PLUS", elementErr.Name)
	assert.Equal(t, 1807, elementErr.X)
	assert.Equal(t, 344, elementErr.Y)

	assert.Equal(t, StateDisconnected, s.State())
	registers, _ := f.hook.Counts()
	assert.Equal(t, 0, registers)
	assert.False(t, s.IsActive())
}

// TestSession_DisconnectTwice 测试重复断开是无操作
func TestSession_DisconnectTwice(t *testing.T) {
	f := newSessionFixture(t)
	collector := collectEvents(f.bus)
	s := f.connect(t)

	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	_, unregisters := f.hook.Counts()
	assert.Equal(t, 1, unregisters)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, []events.EventType{
		events.EventTypeSessionConnected,
		events.EventTypeSessionDisconnected,
	}, collector.Types())
}

// TestSession_DisconnectUninstallFails 测试钩子卸载失败时会话保持连接
//
// 测试场景：
//  1. Disconnect 返回包装后的卸载错误
//  2. 会话仍是 Connected，按键继续产生命令
//  3. 不发布断开事件
//  4. 卸载恢复正常后再次 Disconnect 成功
func TestSession_DisconnectUninstallFails(t *testing.T) {
	f := newSessionFixture(t)
	collector := collectEvents(f.bus)
	s := f.connect(t)

	uninstallErr := errors.New("unhook failed")
	f.hook.mu.Lock()
	f.hook.unregisterErr = uninstallErr
	f.hook.mu.Unlock()

	err := s.Disconnect()
	require.Error(t, err)
	assert.ErrorIs(t, err, uninstallErr)
	assert.Equal(t, StateConnected, s.State())
	assert.True(t, f.hook.Fire(keyDown("Numpad7")))
	assert.NotContains(t, collector.Types(), events.EventTypeSessionDisconnected)

	f.hook.mu.Lock()
	f.hook.unregisterErr = nil
	f.hook.mu.Unlock()

	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 2, f.minus.Clicks())
	assert.Contains(t, collector.Types(), events.EventTypeSessionDisconnected)
}

// TestSession_NoCommandsAfterDisconnect 测试断开后按键不再产生命令，已排队命令全部执行
func TestSession_NoCommandsAfterDisconnect(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)

	for i := 0; i < 3; i++ {
		f.hook.Fire(keyDown("Numpad9"))
	}
	require.NoError(t, s.Disconnect())

	assert.False(t, f.hook.Fire(keyDown("Numpad9")))
	assert.False(t, f.hook.Fire(keyDown("Numpad5")))
	waitDone(t, s)

	assert.Equal(t, 6, f.plus.Clicks())
	assert.Empty(t, f.keys.Sent())
}

// TestSession_ConnectFailures 测试连接失败的各种情况
func TestSession_ConnectFailures(t *testing.T) {
	t.Run("找不到窗口", func(t *testing.T) {
		f := newSessionFixture(t)
		f.target.attachErr = errors.New("no such process")

		_, err := Connect(context.Background(), testPath, f.opts)
		assert.ErrorContains(t, err, "no such process")
	})

	t.Run("窗口没有获得焦点", func(t *testing.T) {
		f := newSessionFixture(t)
		f.window.grantFocus = false

		s, err := NewSession(f.opts)
		require.NoError(t, err)
		err = s.Connect(context.Background(), testPath)
		assert.ErrorIs(t, err, ErrFocusLost)
		assert.Equal(t, StateDisconnected, s.State())
	})

	t.Run("上下文取消", func(t *testing.T) {
		f := newSessionFixture(t)
		f.window.grantFocus = false
		f.opts.FocusTimeout = time.Minute

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Connect(ctx, testPath, f.opts)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("置前失败", func(t *testing.T) {
		f := newSessionFixture(t)
		f.window.focusErr = errors.New("window is gone")

		_, err := Connect(context.Background(), testPath, f.opts)
		assert.ErrorContains(t, err, "window is gone")
	})

	t.Run("钩子安装失败", func(t *testing.T) {
		f := newSessionFixture(t)
		f.hook.registerErr = errors.New("hook denied")

		s, err := NewSession(f.opts)
		require.NoError(t, err)
		err = s.Connect(context.Background(), testPath)
		assert.ErrorContains(t, err, "hook denied")
		assert.Equal(t, StateDisconnected, s.State())
		waitDone(t, s)
	})

	t.Run("缺少必需选项", func(t *testing.T) {
		_, err := NewSession(Options{})
		assert.Error(t, err)
	})
}

// TestSession_AlreadyConnected 测试重复连接
func TestSession_AlreadyConnected(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)
	defer s.Disconnect()

	assert.ErrorIs(t, s.Connect(context.Background(), testPath), ErrAlreadyConnected)
}

// TestSession_Reconnect 测试断开后可以重新连接
func TestSession_Reconnect(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)
	firstID := s.ID()
	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	require.NoError(t, s.Connect(context.Background(), testPath))
	defer s.Disconnect()
	assert.NotEqual(t, firstID, s.ID())

	f.hook.Fire(keyDown("Numpad7"))
	require.NoError(t, s.Disconnect())
	waitDone(t, s)
	assert.Equal(t, 2, f.minus.Clicks())
}

// TestSession_IsActive 测试活动状态委托给守卫
func TestSession_IsActive(t *testing.T) {
	f := newSessionFixture(t)
	s, err := NewSession(f.opts)
	require.NoError(t, err)
	assert.False(t, s.IsActive(), "未连接时为 false")

	require.NoError(t, s.Connect(context.Background(), testPath))
	assert.True(t, s.IsActive())

	f.window.foreground.Store(false)
	assert.False(t, s.IsActive())

	require.NoError(t, s.Disconnect())
	f.window.foreground.Store(true)
	assert.False(t, s.IsActive(), "断开后为 false")
}

// TestSession_QuitRequested 测试退出绑定关闭 QuitRequested
func TestSession_QuitRequested(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)
	defer s.Disconnect()

	quit := s.QuitRequested()
	require.NotNil(t, quit)

	assert.True(t, f.hook.Fire(keyDown("Pause")))
	assert.True(t, f.hook.Fire(keyDown("Pause")), "重复按下不会 panic")

	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("QuitRequested 未关闭")
	}
}

// TestSession_NotConnected 测试未连接时需要窗口的操作
func TestSession_NotConnected(t *testing.T) {
	f := newSessionFixture(t)
	s, err := NewSession(f.opts)
	require.NoError(t, err)

	assert.ErrorIs(t, s.BringToFront(context.Background()), ErrNotConnected)
	_, err = s.Handle("BTN_TEMP_MINUS")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, s.Disconnect())
	assert.Nil(t, s.QuitRequested())

	select {
	case <-s.Done():
	default:
		t.Fatal("从未连接时 Done 应已关闭")
	}
}

// TestSession_Handles 测试连接后查询按钮
func TestSession_Handles(t *testing.T) {
	f := newSessionFixture(t)
	s := f.connect(t)
	defer s.Disconnect()

	h, err := s.Handle("BTN_TEMP_MINUS")
	require.NoError(t, err)
	assert.Same(t, f.minus, h)

	_, err = s.Handle("BTN_NOPE")
	assert.ErrorIs(t, err, ErrElementUnavailable)

	assert.NoError(t, s.BringToFront(context.Background()))
	assert.GreaterOrEqual(t, f.window.focusCalls.Load(), int32(2))
}

// TestSession_Events 测试会话事件携带上下文
func TestSession_Events(t *testing.T) {
	f := newSessionFixture(t)
	collector := collectEvents(f.bus)
	s := f.connect(t)

	f.hook.Fire(keyDown("Numpad7"))
	require.NoError(t, s.Disconnect())
	waitDone(t, s)

	got := collector.Events()
	require.Len(t, got, 3)
	assert.Equal(t, events.EventTypeSessionConnected, got[0].Type)
	assert.Equal(t, testPath, got[0].Context.TargetPath)
	assert.Equal(t, "Lightroom Classic", got[0].Context.WindowTitle)
	assert.Equal(t, s.ID(), got[0].SessionID())

	// 断开事件在分发器执行排队命令之前发布
	types := []events.EventType{got[1].Type, got[2].Type}
	assert.ElementsMatch(t, []events.EventType{
		events.EventTypeSessionDisconnected,
		events.EventTypeCommandDispatched,
	}, types)
	for _, e := range got {
		assert.Equal(t, s.ID(), e.SessionID())
	}
}
