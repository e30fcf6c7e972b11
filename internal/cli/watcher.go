package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chenyang-zz/lrkeys/internal/infrastructure/config"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce 合并编辑器保存时连续触发的写事件
const reloadDebounce = 200 * time.Millisecond

// loadFunc 加载配置文件
type loadFunc func(path string) (*config.Config, error)

/**
 * configWatcher 监视配置文件并在内容变化后重新加载
 *
 * 监视文件所在目录而非文件本身，编辑器用改名方式保存时也能收到事件。
 * 加载失败只记录警告，继续使用当前配置。
 */
type configWatcher struct {
	path     string
	load     loadFunc
	debounce time.Duration
	watcher  *fsnotify.Watcher
	reloads  chan *config.Config
}

/**
 * newConfigWatcher 创建配置监视器
 *
 * Parameters:
 *   - path: 配置文件路径
 *   - load: 加载函数
 *
 * Returns: *configWatcher - 监视器，调用 Run 开始处理事件
 */
func newConfigWatcher(path string, load loadFunc) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &configWatcher{
		path:     abs,
		load:     load,
		debounce: reloadDebounce,
		watcher:  fsw,
		reloads:  make(chan *config.Config, 1),
	}, nil
}

// Reloads 重新加载成功的配置
func (w *configWatcher) Reloads() <-chan *config.Config {
	return w.reloads
}

// Run 处理文件事件直到 ctx 取消或监视器关闭
func (w *configWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("配置监视出错", zap.String("component", "config"), zap.Error(err))

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *configWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *configWatcher) reload(ctx context.Context) {
	cfg, err := w.load(w.path)
	if err != nil {
		if isReloadable(err) {
			logger.Warn("重新加载配置失败，继续使用当前配置",
				zap.String("component", "config"),
				zap.String("path", w.path),
				zap.Error(err),
			)
		}
		return
	}

	// 只保留最新的一份
	select {
	case <-w.reloads:
	default:
	}
	select {
	case w.reloads <- cfg:
	case <-ctx.Done():
	}
}

// Close 停止监视
func (w *configWatcher) Close() error {
	return w.watcher.Close()
}

// isReloadable 文件被移走时不报警告，等待新文件出现
func isReloadable(err error) bool {
	return !errors.Is(err, os.ErrNotExist)
}
