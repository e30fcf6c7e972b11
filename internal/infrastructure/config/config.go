/**
 * Package config 提供配置管理功能
 *
 * 负责加载、校验和转换 lrkeys 的配置信息
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chenyang-zz/lrkeys/internal/automation"
	"github.com/chenyang-zz/lrkeys/internal/keymap"
	"github.com/chenyang-zz/lrkeys/internal/target"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
	"gopkg.in/yaml.v3"
)

// DefaultTargetPath Lightroom Classic 的默认安装路径
const DefaultTargetPath = `C:\Program Files\Adobe\Adobe Lightroom Classic\Lightroom.exe`

// maxActiveSettle 焦点复查等待的上限，钩子回调里不能睡太久
const maxActiveSettle = 10 * time.Millisecond

/**
 * Config 应用配置结构体
 *
 * 包含应用的所有可配置参数
 */
type Config struct {
	// Target 目标应用配置
	Target TargetConfig `yaml:"target"`

	// Layout 按钮布局配置
	Layout LayoutConfig `yaml:"layout"`

	// Bindings 按键绑定，键为绑定键（如 "Numpad7"、"Ctrl+Numpad7"）
	Bindings map[string]BindingConfig `yaml:"bindings"`

	// Logging 日志配置
	Logging LoggingConfig `yaml:"logging"`

	// Journal 命令日志配置
	Journal JournalConfig `yaml:"journal"`
}

/**
 * TargetConfig 目标应用配置
 */
type TargetConfig struct {
	/** 目标应用可执行文件路径 */
	Path string `yaml:"path"`

	/** 连接时等待窗口获得焦点的超时 */
	FocusTimeout time.Duration `yaml:"focus_timeout"`

	/** 焦点检查复查前的等待，负数表示不复查 */
	ActiveSettle time.Duration `yaml:"active_settle"`
}

/**
 * LayoutConfig 按钮布局配置
 */
type LayoutConfig struct {
	/** 锚点控件 */
	Anchor AnchorConfig `yaml:"anchor"`

	/** 加到换算坐标上的偏移 */
	Margin int `yaml:"margin"`

	/** 按钮必须具有的类名 */
	RequireClass string `yaml:"require_class"`

	/** 连接时绑定的按钮 */
	Buttons []ButtonConfig `yaml:"buttons"`
}

/**
 * AnchorConfig 锚点配置
 */
type AnchorConfig struct {
	Class string `yaml:"class"`
	Title string `yaml:"title"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
}

/**
 * ButtonConfig 按钮配置
 */
type ButtonConfig struct {
	Name string `yaml:"name"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

/**
 * BindingConfig 单条绑定的动作，三个字段恰好设置一个
 */
type BindingConfig struct {
	/** 点击的按钮名 */
	Click string `yaml:"click,omitempty"`

	/** 发送的按键序列 */
	Keys string `yaml:"keys,omitempty"`

	/** 退出 */
	Quit bool `yaml:"quit,omitempty"`
}

/**
 * LoggingConfig 日志配置
 */
type LoggingConfig struct {
	/** 日志级别 */
	Level string `yaml:"level"`

	/** 日志格式 */
	Format string `yaml:"format"`

	/** 文件配置 */
	File FileConfig `yaml:"file"`
}

/**
 * FileConfig 文件配置
 */
type FileConfig struct {
	/** 日志文件路径 */
	Path string `yaml:"path"`

	/** 最大文件大小（MB） */
	MaxSizeMB int `yaml:"max_size_mb"`

	/** 最大备份文件数 */
	MaxBackups int `yaml:"max_backups"`

	/** 最大保留天数 */
	MaxAgeDays int `yaml:"max_age_days"`

	/** 是否压缩 */
	Compress bool `yaml:"compress"`
}

/**
 * JournalConfig 命令日志配置
 */
type JournalConfig struct {
	/** 是否启用 */
	Enabled bool `yaml:"enabled"`

	/** 数据库文件路径 */
	Path string `yaml:"path"`

	/** 批量写入大小 */
	BatchSize int `yaml:"batch_size"`

	/** 刷新间隔 */
	FlushInterval time.Duration `yaml:"flush_interval"`
}

/**
 * DefaultPath 默认配置文件路径
 *
 * Returns:
 *   - string: ~/.lrkeys/config.yaml
 *   - error: 无法获取用户主目录时返回错误
 */
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lrkeys", "config.yaml"), nil
}

/**
 * Load 加载配置文件
 *
 * path 为空时从默认路径加载，默认路径的文件不存在时使用默认配置。
 * 文件中没有设置的字段取默认值，然后替换环境变量并校验。
 *
 * Parameters:
 *   - path: 配置文件路径，可以为空
 *
 * Returns:
 *   - *Config: 加载的配置
 *   - error: 错误信息
 */
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

/**
 * Parse 解析 YAML 配置内容
 *
 * Parameters:
 *   - data: YAML 内容
 *
 * Returns:
 *   - *Config: 解析并校验后的配置
 *   - error: 错误信息
 */
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&config)
	expandEnvVars(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

/**
 * LoadDefault 加载默认配置
 *
 * 默认配置对应 Lightroom Classic 修改照片模块的基本面板。
 *
 * Returns:
 *   - *Config: 默认配置
 *   - error: 错误信息
 */
func LoadDefault() (*Config, error) {
	config := Default()
	expandEnvVars(config)
	return config, nil
}

/**
 * Default 返回未经环境变量替换的默认配置
 */
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			Path:         DefaultTargetPath,
			FocusTimeout: automation.DefaultFocusTimeout,
			ActiveSettle: automation.DefaultActiveSettle,
		},
		Layout: LayoutConfig{
			Anchor:       AnchorConfig{Class: "Static", Title: "Tone Control", X: 1656, Y: 404},
			Margin:       3,
			RequireClass: "Button",
			Buttons:      defaultButtons(),
		},
		Bindings: defaultBindings(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File: FileConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 7,
			},
		},
		Journal: JournalConfig{
			Path:          "~/.lrkeys/journal.db",
			BatchSize:     50,
			FlushInterval: 2 * time.Second,
		},
	}
}

// defaultButtons 基本面板的 24 个按钮
//
// 每行从左到右依次是 MINUS_BIG、MINUS、PLUS、PLUS_BIG。
func defaultButtons() []ButtonConfig {
	rows := []struct {
		name string
		y    int
	}{
		{"TEMP", 344},
		{"TINT", 369},
		{"EXP", 433},
		{"CONTRAST", 458},
		{"SHADOW", 516},
		{"WHITE", 541},
	}
	columns := []struct {
		suffix string
		x      int
	}{
		{"MINUS_BIG", 1748},
		{"MINUS", 1779},
		{"PLUS", 1807},
		{"PLUS_BIG", 1836},
	}

	buttons := make([]ButtonConfig, 0, len(rows)*len(columns))
	for _, row := range rows {
		for _, col := range columns {
			buttons = append(buttons, ButtonConfig{
				Name: "BTN_" + row.name + "_" + col.suffix,
				X:    col.x,
				Y:    row.y,
			})
		}
	}
	return buttons
}

func defaultBindings() map[string]BindingConfig {
	return map[string]BindingConfig{
		"Numpad7":  {Click: "BTN_TEMP_MINUS"},
		"Numpad9":  {Click: "BTN_TEMP_PLUS"},
		"Numpad4":  {Click: "BTN_EXP_MINUS"},
		"Numpad6":  {Click: "BTN_EXP_PLUS"},
		"Numpad1":  {Click: "BTN_TINT_MINUS"},
		"Numpad3":  {Click: "BTN_TINT_PLUS"},
		"Subtract": {Click: "BTN_WHITE_MINUS_BIG"},
		"Add":      {Click: "BTN_WHITE_PLUS_BIG"},
		"Divide":   {Click: "BTN_CONTRAST_MINUS"},
		"Multiply": {Click: "BTN_CONTRAST_PLUS"},
		"Numpad0":  {Click: "BTN_SHADOW_MINUS_BIG"},
		"Decimal":  {Click: "BTN_SHADOW_PLUS_BIG"},
		"Numpad5":  {Keys: "^%v"},
		"Pause":    {Quit: true},
	}
}

// applyDefaults 为文件中没有设置的字段填入默认值
//
// 按钮与绑定整体替换，不与默认表合并。
func applyDefaults(config *Config) {
	def := Default()

	if config.Target.Path == "" {
		config.Target.Path = def.Target.Path
	}
	if config.Target.FocusTimeout == 0 {
		config.Target.FocusTimeout = def.Target.FocusTimeout
	}
	if config.Target.ActiveSettle == 0 {
		config.Target.ActiveSettle = def.Target.ActiveSettle
	}

	if config.Layout.Anchor == (AnchorConfig{}) {
		config.Layout.Anchor = def.Layout.Anchor
	}
	if config.Layout.Margin == 0 {
		config.Layout.Margin = def.Layout.Margin
	}
	if config.Layout.RequireClass == "" {
		config.Layout.RequireClass = def.Layout.RequireClass
	}
	if len(config.Layout.Buttons) == 0 {
		config.Layout.Buttons = def.Layout.Buttons
	}
	if len(config.Bindings) == 0 {
		config.Bindings = def.Bindings
	}

	if config.Logging.Level == "" {
		config.Logging.Level = def.Logging.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = def.Logging.Format
	}
	if config.Logging.File.MaxSizeMB == 0 {
		config.Logging.File.MaxSizeMB = def.Logging.File.MaxSizeMB
	}
	if config.Logging.File.MaxBackups == 0 {
		config.Logging.File.MaxBackups = def.Logging.File.MaxBackups
	}
	if config.Logging.File.MaxAgeDays == 0 {
		config.Logging.File.MaxAgeDays = def.Logging.File.MaxAgeDays
	}

	if config.Journal.Path == "" {
		config.Journal.Path = def.Journal.Path
	}
	if config.Journal.BatchSize == 0 {
		config.Journal.BatchSize = def.Journal.BatchSize
	}
	if config.Journal.FlushInterval == 0 {
		config.Journal.FlushInterval = def.Journal.FlushInterval
	}
}

/**
 * expandEnvVars 展开环境变量
 *
 * 替换配置路径中的环境变量占位符（如 ${LOCALAPPDATA}）与开头的 ~
 *
 * Parameters:
 *   - config: 配置对象
 */
func expandEnvVars(config *Config) {
	config.Target.Path = expandPath(config.Target.Path)
	config.Logging.File.Path = expandPath(config.Logging.File.Path)
	config.Journal.Path = expandPath(config.Journal.Path)
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

/**
 * Validate 校验配置
 *
 * 检查每条绑定恰好有一个动作、点击绑定指向布局中的按钮、
 * 按键序列可以解析，以及各项数值在合理范围内。
 *
 * Returns:
 *   - error: 全部问题合并后的错误
 */
func (c *Config) Validate() error {
	var errs []error

	if c.Target.Path == "" {
		errs = append(errs, errors.New("target.path is required"))
	}
	if c.Target.FocusTimeout < 0 {
		errs = append(errs, fmt.Errorf("target.focus_timeout must not be negative, got %s", c.Target.FocusTimeout))
	}
	if c.Target.ActiveSettle > maxActiveSettle {
		errs = append(errs, fmt.Errorf("target.active_settle must be at most %s, got %s", maxActiveSettle, c.Target.ActiveSettle))
	}

	if c.Layout.Anchor.Class == "" || c.Layout.Anchor.Title == "" {
		errs = append(errs, errors.New("layout.anchor needs class and title"))
	}
	buttons := make(map[string]bool, len(c.Layout.Buttons))
	for i, b := range c.Layout.Buttons {
		switch {
		case b.Name == "":
			errs = append(errs, fmt.Errorf("layout.buttons[%d]: name is required", i))
		case buttons[b.Name]:
			errs = append(errs, fmt.Errorf("layout.buttons[%d]: duplicate button %s", i, b.Name))
		}
		buttons[b.Name] = true
	}

	if len(c.Bindings) == 0 {
		errs = append(errs, errors.New("bindings: at least one binding is required"))
	}
	for chord, b := range c.Bindings {
		if _, _, err := keymap.ParseChord(chord); err != nil {
			errs = append(errs, fmt.Errorf("bindings: %w", err))
			continue
		}
		action, err := b.Action()
		if err != nil {
			errs = append(errs, fmt.Errorf("bindings.%s: %w", chord, err))
			continue
		}
		if action.Kind == keymap.ActionClick && !buttons[action.Target] {
			errs = append(errs, fmt.Errorf("bindings.%s: button %s is not in layout.buttons", chord, action.Target))
		}
	}
	if _, err := c.KeyTable(); err != nil && len(errs) == 0 {
		errs = append(errs, err)
	}

	if c.Journal.Enabled {
		if c.Journal.Path == "" {
			errs = append(errs, errors.New("journal.path is required when the journal is enabled"))
		}
		if c.Journal.BatchSize <= 0 {
			errs = append(errs, fmt.Errorf("journal.batch_size must be positive, got %d", c.Journal.BatchSize))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Action 把绑定配置转换为动作
func (b BindingConfig) Action() (keymap.Action, error) {
	set := 0
	var action keymap.Action
	if b.Click != "" {
		set++
		action = keymap.Click(b.Click)
	}
	if b.Keys != "" {
		set++
		action = keymap.Keys(b.Keys)
	}
	if b.Quit {
		set++
		action = keymap.Quit()
	}
	if set != 1 {
		return keymap.Action{}, fmt.Errorf("exactly one of click, keys or quit must be set")
	}
	return action, nil
}

/**
 * KeyTable 构造按键绑定表
 *
 * Returns:
 *   - *keymap.Table: 绑定表
 *   - error: 绑定不合法时返回错误
 */
func (c *Config) KeyTable() (*keymap.Table, error) {
	actions := make(map[string]keymap.Action, len(c.Bindings))
	for chord, b := range c.Bindings {
		action, err := b.Action()
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", chord, err)
		}
		actions[chord] = action
	}
	return keymap.NewTable(actions)
}

// Buttons 连接时需要绑定的按钮
func (c *Config) Buttons() []automation.Button {
	buttons := make([]automation.Button, 0, len(c.Layout.Buttons))
	for _, b := range c.Layout.Buttons {
		buttons = append(buttons, automation.Button{Name: b.Name, X: b.X, Y: b.Y})
	}
	return buttons
}

// TargetLayout 解析器使用的布局
func (c *Config) TargetLayout() target.Layout {
	a := c.Layout.Anchor
	return target.Layout{
		Anchor:       target.Anchor{Class: a.Class, Title: a.Title, X: a.X, Y: a.Y},
		Margin:       c.Layout.Margin,
		RequireClass: c.Layout.RequireClass,
	}
}

// LoggerOptions 日志初始化选项
func (c *Config) LoggerOptions() logger.Options {
	f := c.Logging.File
	return logger.Options{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File: logger.FileOptions{
			Path:       f.Path,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		},
	}
}
