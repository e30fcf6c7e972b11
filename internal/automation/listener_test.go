package automation

import (
	"testing"

	"github.com/chenyang-zz/lrkeys/internal/keymap"
	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBindings(t *testing.T) *keymap.Table {
	t.Helper()
	table, err := keymap.NewTable(map[string]keymap.Action{
		"Numpad7": keymap.Click("BTN_TEMP_MINUS"),
		"Numpad9": keymap.Click("BTN_TEMP_PLUS"),
		"Numpad4": keymap.Click("BTN_NOT_BOUND"),
		"Numpad5": keymap.Keys("^%v"),
		"Pause":   keymap.Quit(),
	})
	require.NoError(t, err)
	return table
}

func newTestListener(t *testing.T, active bool, handles map[string]ActionHandle) (*Listener, *Queue, *fixedGuard) {
	t.Helper()
	q := NewQueue()
	guard := newFixedGuard(active)
	l := NewListener(&fakeHook{}, guard, testBindings(t), handles, q, nil)
	return l, q, guard
}

// TestListener_Passthrough 测试不满足过滤条件的事件全部放行且不产生命令
func TestListener_Passthrough(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		event  platform.KeyEvent
	}{
		{"释放事件", true, keyUp("Numpad7")},
		{"窗口未激活", false, keyDown("Numpad7")},
		{"未绑定按键", true, keyDown("Numpad8")},
		{"未激活且未绑定", false, keyDown("A")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, q, _ := newTestListener(t, tt.active, nil)
			assert.False(t, l.Handle(tt.event))
			assert.Equal(t, 0, q.Len())
		})
	}
}

// TestListener_ShortCircuit 测试释放事件不会触发焦点检查
func TestListener_ShortCircuit(t *testing.T) {
	calls := 0
	w := &fakeWindow{foregroundFn: func() bool {
		calls++
		return true
	}}
	q := NewQueue()
	l := NewListener(&fakeHook{}, NewGuard(w, 0), testBindings(t), nil, q, nil)

	l.Handle(keyUp("Numpad7"))
	assert.Equal(t, 0, calls)

	l.Handle(keyDown("Numpad7"))
	assert.Equal(t, 1, calls)
}

// TestListener_EnqueuesInOrder 测试 N 个有效事件恰好产生 N 条命令且顺序一致
func TestListener_EnqueuesInOrder(t *testing.T) {
	minus := newFakeHandle("BTN_TEMP_MINUS", nil)
	plus := newFakeHandle("BTN_TEMP_PLUS", nil)
	l, q, _ := newTestListener(t, true, map[string]ActionHandle{
		"BTN_TEMP_MINUS": minus,
		"BTN_TEMP_PLUS":  plus,
	})

	keys := []string{"Numpad7", "Numpad9", "Numpad5", "Numpad7", "Numpad7", "Numpad9"}
	for _, k := range keys {
		assert.True(t, l.Handle(keyDown(k)))
		l.Handle(keyUp(k))
	}
	require.Equal(t, len(keys), q.Len())

	for i, k := range keys {
		cmd, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, k, cmd.Key())
		assert.Equal(t, uint64(i+1), cmd.Seq())

		switch k {
		case "Numpad7":
			assert.Equal(t, CommandClick, cmd.Kind())
			assert.Same(t, minus, cmd.Handle())
		case "Numpad9":
			assert.Same(t, plus, cmd.Handle())
		case "Numpad5":
			assert.Equal(t, CommandKeySequence, cmd.Kind())
			assert.Equal(t, "^%v", cmd.Keys())
		}
	}
}

// TestListener_UnresolvedClick 测试绑定的按钮没有句柄时仍然消费事件并入队空句柄
func TestListener_UnresolvedClick(t *testing.T) {
	l, q, _ := newTestListener(t, true, map[string]ActionHandle{})

	assert.True(t, l.Handle(keyDown("Numpad4")))
	cmd, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "BTN_NOT_BOUND", cmd.Target())
	assert.Nil(t, cmd.Handle())
}

// TestListener_Quit 测试退出绑定
func TestListener_Quit(t *testing.T) {
	q := NewQueue()
	quits := 0
	l := NewListener(&fakeHook{}, newFixedGuard(true), testBindings(t), nil, q, func() { quits++ })

	assert.True(t, l.Handle(keyDown("Pause")))
	assert.Equal(t, 1, quits)
	assert.Equal(t, 0, q.Len(), "退出绑定不入队")

	// 窗口未激活时退出键同样放行
	l.guard = newFixedGuard(false)
	assert.False(t, l.Handle(keyDown("Pause")))
	assert.Equal(t, 1, quits)
}

// TestListener_InstallUninstall 测试钩子安装与卸载
func TestListener_InstallUninstall(t *testing.T) {
	hook := &fakeHook{}
	q := NewQueue()
	l := NewListener(hook, newFixedGuard(true), testBindings(t), nil, q, nil)

	require.NoError(t, l.Install())
	assert.True(t, hook.IsRunning())
	assert.True(t, hook.Fire(keyDown("Numpad5")))

	require.NoError(t, l.Uninstall())
	assert.False(t, hook.Fire(keyDown("Numpad5")))
	assert.Equal(t, 1, q.Len())
}
