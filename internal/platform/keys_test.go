package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKeyName 测试虚拟键码命名
func TestKeyName(t *testing.T) {
	tests := []struct {
		vk     uint32
		expect string
	}{
		{0x60, "Numpad0"},
		{0x67, "Numpad7"},
		{0x69, "Numpad9"},
		{0x6A, "Multiply"},
		{0x6B, "Add"},
		{0x6D, "Subtract"},
		{0x6E, "Decimal"},
		{0x6F, "Divide"},
		{0x70, "F1"},
		{0x87, "F24"},
		{0x41, "A"},
		{0x35, "5"},
		{0xA2, "Lcontrol"},
		{0x13, "Pause"},
		{0x07, "VK_0x07"},
	}

	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			assert.Equal(t, tt.expect, KeyName(tt.vk))
		})
	}
}

// TestIsKnownKey 测试按键标识校验
func TestIsKnownKey(t *testing.T) {
	assert.True(t, IsKnownKey("Numpad5"))
	assert.True(t, IsKnownKey("Decimal"))
	assert.False(t, IsKnownKey("numpad5"), "按键标识区分大小写")
	assert.False(t, IsKnownKey("Keypad5"))
}

// TestPressedKeys 测试按下按键集合
//
// 测试场景：
//  1. 按下的按键按顺序加入
//  2. 重复按下（自动重复）不重复加入
//  3. 释放后移除
//  4. 返回的快照不受后续修改影响
func TestPressedKeys(t *testing.T) {
	var p pressedKeys

	assert.Equal(t, []string{"Lcontrol"}, p.update("Lcontrol", KeyDown))
	snapshot := p.update("A", KeyDown)
	assert.Equal(t, []string{"Lcontrol", "A"}, snapshot)
	assert.Equal(t, []string{"Lcontrol", "A"}, p.update("A", KeyDown))

	assert.Equal(t, []string{"A"}, p.update("Lcontrol", KeyUp))
	assert.Equal(t, []string{"Lcontrol", "A"}, snapshot)

	assert.Empty(t, p.update("A", KeyUp))
	assert.Empty(t, p.update("B", KeyUp))

	p.update("C", KeyDown)
	p.reset()
	assert.Empty(t, p.keys)
}

// TestKeyEvent 测试键盘事件辅助方法
func TestKeyEvent(t *testing.T) {
	event := KeyEvent{Key: "A", Transition: KeyDown, Pressed: []string{"Lcontrol", "A"}}

	assert.True(t, event.IsPressed("Lcontrol"))
	assert.False(t, event.IsPressed("Lshift"))
	assert.Equal(t, "key down", KeyDown.String())
	assert.Equal(t, "key up", KeyUp.String())
}
