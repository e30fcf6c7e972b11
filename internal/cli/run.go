package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chenyang-zz/lrkeys/internal/automation"
	"github.com/chenyang-zz/lrkeys/internal/infrastructure/config"
	"github.com/chenyang-zz/lrkeys/internal/infrastructure/storage"
	"github.com/chenyang-zz/lrkeys/internal/platform"
	"github.com/chenyang-zz/lrkeys/internal/singleinstance"
	"github.com/chenyang-zz/lrkeys/internal/target"
	"github.com/chenyang-zz/lrkeys/pkg/events"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// drainTimeout 断开后等待分发器处理完排队命令的时间
	drainTimeout = 5 * time.Second

	// eventBufferSize 每个订阅者的事件缓冲，命令日志批量落盘期间不阻塞分发器
	eventBufferSize = 1024
)

// RunOptions run 命令参数
type RunOptions struct {
	Path  string
	Watch bool
}

// NewRunCommand 创建 run 命令
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the target window and handle bound keys until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return out.Failure(ExitCommandError, "load config", err)
			}
			defer logger.Sync()

			if opts.Path != "" {
				cfg.Target.Path = opts.Path
			}

			lock, err := singleinstance.TryLock(singleinstance.DefaultMutexName())
			if err != nil {
				return out.Failure(ExitCommandError, "single instance", err)
			}
			defer lock.Release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := &runner{
				configPath: rootOpts.ConfigPath,
				pathFlag:   opts.Path,
				verbose:    rootOpts.Verbose,
				hook:       platform.NewKeyboardHook(),
				keys:       platform.KeySenderFunc(platform.SendKeys),
				newTarget: func(layout target.Layout) automation.Target {
					return target.NewResolver(layout)
				},
			}
			if err := r.run(ctx, cfg, opts.Watch); err != nil {
				return out.Failure(ExitFailure, "run", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "target executable (overrides target.path)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reconnect when the config file changes")

	return cmd
}

// runner 管理一次 run 的会话与命令日志
type runner struct {
	configPath string
	pathFlag   string
	verbose    bool
	hook       platform.KeyboardHook
	keys       platform.KeySender
	newTarget  func(target.Layout) automation.Target
}

// stopReason 会话结束的原因
type stopReason int

const (
	stopSignal stopReason = iota
	stopQuitKey
	stopReload
)

// run 连接目标窗口并阻塞到收到信号、按下退出键或配置变化
//
// 配置变化时断开并用新配置重新连接。
func (r *runner) run(ctx context.Context, cfg *config.Config, watch bool) error {
	bus := events.NewEventBus(events.WithAsyncBufferSize(eventBufferSize))
	bus.Use(events.RecoveryMiddleware())
	if r.verbose {
		bus.Use(events.LoggingMiddleware())
	}

	// 总线先停止，把已发布的事件交给命令日志后再关闭日志
	closeJournal := func() {}
	defer func() {
		_ = bus.Stop(time.Second)
		closeJournal()
	}()

	if cfg.Journal.Enabled {
		c, err := r.openJournal(cfg, bus)
		if err != nil {
			return err
		}
		closeJournal = c
	}

	var reloads <-chan *config.Config
	if watch {
		path, err := r.watchPath()
		if err != nil {
			return err
		}
		watcher, err := newConfigWatcher(path, r.reload)
		if err != nil {
			return err
		}
		defer watcher.Close()
		go watcher.Run(ctx)
		reloads = watcher.Reloads()
	}

	for {
		session, err := automation.Connect(ctx, cfg.Target.Path, r.sessionOptions(cfg, bus))
		if err != nil {
			return err
		}

		logger.Info("快捷键已启用，按 Ctrl+C 退出",
			zap.String("component", "cli"),
			zap.String("session_id", session.ID()),
		)

		var reason stopReason
		var next *config.Config
		select {
		case <-ctx.Done():
			reason = stopSignal
		case <-session.QuitRequested():
			reason = stopQuitKey
		case next = <-reloads:
			reason = stopReload
		}

		if err := session.Disconnect(); err != nil {
			return err
		}
		waitDrained(session)

		if reason != stopReload {
			return nil
		}
		logger.Info("配置已变化，重新连接", zap.String("component", "cli"))
		cfg = next
	}
}

func (r *runner) sessionOptions(cfg *config.Config, bus *events.EventBus) automation.Options {
	// 配置已经通过校验，这里只会在绑定表构造本身出错时失败
	table, err := cfg.KeyTable()
	if err != nil {
		logger.Error("构造绑定表失败", zap.String("component", "cli"), zap.Error(err))
	}
	return automation.Options{
		Target:       r.newTarget(cfg.TargetLayout()),
		Hook:         r.hook,
		Keys:         r.keys,
		Bindings:     table,
		Buttons:      cfg.Buttons(),
		FocusTimeout: cfg.Target.FocusTimeout,
		ActiveSettle: cfg.Target.ActiveSettle,
		Bus:          bus,
	}
}

func (r *runner) openJournal(cfg *config.Config, bus *events.EventBus) (func(), error) {
	db, err := storage.OpenJournal(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	writer := storage.NewBatchWriter(storage.NewSQLiteJournalRepository(db), storage.BatchWriterConfig{
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
	})
	writer.Start()
	writer.Attach(bus)

	return func() {
		writer.Stop()
		db.Close()
	}, nil
}

// watchPath 被监视的配置文件路径
func (r *runner) watchPath() (string, error) {
	if r.configPath != "" {
		return r.configPath, nil
	}
	return config.DefaultPath()
}

// reload 重新加载配置，保留命令行上的 --path
func (r *runner) reload(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if r.pathFlag != "" {
		cfg.Target.Path = r.pathFlag
	}
	return cfg, nil
}

// waitDrained 等待分发器处理完排队命令
func waitDrained(session *automation.Session) {
	select {
	case <-session.Done():
	case <-time.After(drainTimeout):
		logger.Warn("等待命令执行完成超时", zap.String("component", "cli"), zap.Duration("timeout", drainTimeout))
	}
}
