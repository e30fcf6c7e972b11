// Package cli 实现 lrkeys 命令行
package cli

import (
	"fmt"
	"slices"

	"github.com/chenyang-zz/lrkeys/internal/infrastructure/config"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"github.com/spf13/cobra"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "text" | "json"
}

// ValidFormats 支持的输出格式
var ValidFormats = []string{"text", "json"}

// NewRootCommand 创建 lrkeys 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lrkeys",
		Short: "lrkeys - numpad shortcuts for Lightroom Classic",
		Long: "lrkeys watches the keyboard while Lightroom Classic has focus and turns bound keys " +
			"into clicks on Develop panel buttons or synthesized key sequences.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				out := &OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}
				return out.Failure(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.lrkeys/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBindingsCommand(opts))
	cmd.AddCommand(NewCheckKeysCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// loadConfig 加载配置并按配置初始化日志
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.LoggerOptions()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if o.Verbose {
		logger.SetLevel("debug")
	}
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
