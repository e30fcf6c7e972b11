package target

import (
	"errors"
	"testing"

	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElement struct {
	class    string
	text     string
	rect     platform.Rect
	disabled bool
}

func (e *fakeElement) ClassName() string { return e.class }
func (e *fakeElement) Text() string { return e.text }
func (e *fakeElement) Rect() platform.Rect { return e.rect }
func (e *fakeElement) IsEnabled() bool { return !e.disabled }
func (e *fakeElement) Click() error { return nil }
func (e *fakeElement) IsAlive() bool { return true }

type xy struct{ x, y int }

// fakeWindow 锚点与坐标元素都由测试设置
type fakeWindow struct {
	anchor   *fakeElement
	elements map[xy]*fakeElement
	queried  []xy
}

func (w *fakeWindow) Title() string { return "Lightroom" }
func (w *fakeWindow) IsForeground() bool { return true }
func (w *fakeWindow) Focus() error { return nil }

func (w *fakeWindow) FindDescendant(class, title string) (platform.Element, error) {
	if w.anchor == nil || class != "Static" || title != "Tone Control" {
		return nil, platform.ErrElementNotFound
	}
	return w.anchor, nil
}

func (w *fakeWindow) FromPoint(x, y int) (platform.Element, error) {
	w.queried = append(w.queried, xy{x, y})
	if e, ok := w.elements[xy{x, y}]; ok {
		return e, nil
	}
	return nil, platform.ErrElementNotFound
}

// newShiftedWindow 锚点相对参考布局平移 (dx, dy)
func newShiftedWindow(dx, dy int) *fakeWindow {
	return &fakeWindow{
		anchor: &fakeElement{
			class: "Static",
			text:  "Tone Control",
			rect:  platform.Rect{Left: 1656 + dx, Top: 404 + dy, Right: 1750 + dx, Bottom: 420 + dy},
		},
		elements: map[xy]*fakeElement{},
	}
}

// TestResolver_Point 测试参考坐标换算
func TestResolver_Point(t *testing.T) {
	r := NewResolverWith(DefaultLayout(), nil)

	tests := []struct {
		name         string
		anchor       platform.Rect
		x, y         int
		wantX, wantY int
	}{
		{"参考位置", platform.Rect{Left: 1656, Top: 404}, 1779, 344, 1782, 347},
		{"窗口右移", platform.Rect{Left: 1756, Top: 404}, 1779, 344, 1882, 347},
		{"窗口上移", platform.Rect{Left: 1656, Top: 304}, 1748, 541, 1751, 444},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := r.Point(tt.anchor, tt.x, tt.y)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

// TestResolver_Resolve 测试按钮解析
//
// 测试场景：
//  1. 坐标处是启用的无文本按钮时返回该元素
//  2. 类名不符、有文本、禁用时返回 ErrNotAButton
//  3. 坐标处没有元素
//  4. 找不到锚点
func TestResolver_Resolve(t *testing.T) {
	r := NewResolverWith(DefaultLayout(), nil)

	t.Run("可用按钮", func(t *testing.T) {
		w := newShiftedWindow(-200, 50)
		button := &fakeElement{class: "Button"}
		w.elements[xy{1779 - 200 + 3, 344 + 50 + 3}] = button

		h, err := r.Resolve(w, 1779, 344)
		require.NoError(t, err)
		assert.Same(t, button, h)
	})

	bad := []struct {
		name    string
		element *fakeElement
	}{
		{"类名不符", &fakeElement{class: "Static"}},
		{"带文本", &fakeElement{class: "Button", text: "Auto"}},
		{"已禁用", &fakeElement{class: "Button", disabled: true}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			w := newShiftedWindow(0, 0)
			w.elements[xy{1782, 347}] = tt.element

			_, err := r.Resolve(w, 1779, 344)
			assert.ErrorIs(t, err, ErrNotAButton)
		})
	}

	t.Run("没有元素", func(t *testing.T) {
		w := newShiftedWindow(0, 0)
		_, err := r.Resolve(w, 1779, 344)
		assert.ErrorIs(t, err, platform.ErrElementNotFound)
		assert.Equal(t, []xy{{1782, 347}}, w.queried)
	})

	t.Run("没有锚点", func(t *testing.T) {
		w := newShiftedWindow(0, 0)
		w.anchor = nil
		_, err := r.Resolve(w, 1779, 344)
		assert.ErrorIs(t, err, platform.ErrElementNotFound)
		assert.ErrorContains(t, err, "Tone Control")
		assert.Empty(t, w.queried)
	})

	t.Run("没有窗口", func(t *testing.T) {
		_, err := r.Resolve(nil, 1779, 344)
		assert.ErrorIs(t, err, platform.ErrWindowNotFound)
	})
}

// TestResolver_NoClassRequirement 测试不要求类名时的解析
func TestResolver_NoClassRequirement(t *testing.T) {
	layout := DefaultLayout()
	layout.RequireClass = ""
	r := NewResolverWith(layout, nil)

	w := newShiftedWindow(0, 0)
	w.elements[xy{1782, 347}] = &fakeElement{class: "LrButton"}

	_, err := r.Resolve(w, 1779, 344)
	assert.NoError(t, err)
}

// TestResolver_Attach 测试 Attach 委托给连接函数
func TestResolver_Attach(t *testing.T) {
	w := newShiftedWindow(0, 0)
	var got string
	r := NewResolverWith(DefaultLayout(), func(path string) (platform.Window, error) {
		got = path
		if path == "" {
			return nil, platform.ErrWindowNotFound
		}
		return w, nil
	})

	window, err := r.Attach(`C:\Lightroom.exe`)
	require.NoError(t, err)
	assert.Same(t, w, window)
	assert.Equal(t, `C:\Lightroom.exe`, got)

	_, err = r.Attach("")
	assert.True(t, errors.Is(err, platform.ErrWindowNotFound))
}
