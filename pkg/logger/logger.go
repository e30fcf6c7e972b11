/**
 * Package logger 提供结构化日志功能
 *
 * 基于 uber-go/zap 实现的结构化日志系统，文件输出通过 lumberjack 滚动。
 * 支持开发环境（彩色控制台）和生产环境（JSON）两种配置。
 */
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// logger 全局日志实例
	logger *zap.Logger

	// sugar 全局 sugared logger 实例
	sugar *zap.SugaredLogger

	// level 全局日志级别，可在运行时调整（如 --verbose）
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	// once 确保日志只初始化一次
	once sync.Once
)

// FileOptions 日志文件滚动配置
type FileOptions struct {
	// Path 日志文件路径，为空表示不写文件
	Path string

	// MaxSizeMB 单个文件最大尺寸（MB）
	MaxSizeMB int

	// MaxBackups 最多保留的旧文件数量
	MaxBackups int

	// MaxAgeDays 旧文件最长保留天数
	MaxAgeDays int

	// Compress 是否压缩旧文件
	Compress bool
}

// Options 日志初始化选项
type Options struct {
	// Level 日志级别（debug/info/warn/error）
	Level string

	// Format 控制台输出格式（console/json）
	Format string

	// File 文件输出配置
	File FileOptions
}

// InitLogger 根据环境变量初始化日志系统
//
// 环境变量：
//   - ENV: development/production，默认 development
//   - LOG_LEVEL: 日志级别，默认 development 为 debug，production 为 info
//   - LOG_FILE: 日志文件路径（可选）
//
// Returns: error - 初始化失败时返回错误
func InitLogger() error {
	return Init(optionsFromEnv())
}

// Init 使用显式选项初始化日志系统
//
// 只有第一次调用生效，之后的调用直接返回。
//
// Parameters:
//   - opts: 日志选项
//
// Returns: error - 初始化失败时返回错误
func Init(opts Options) error {
	var initErr error
	once.Do(func() {
		logger, initErr = build(opts)
		if initErr != nil {
			return
		}
		sugar = logger.Sugar()
	})
	return initErr
}

// optionsFromEnv 从环境变量构造日志选项
func optionsFromEnv() Options {
	env := getEnv("ENV", "development")

	opts := Options{
		Level:  getEnv("LOG_LEVEL", "debug"),
		Format: "console",
		File: FileOptions{
			Path:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
	if env == "production" {
		opts.Level = getEnv("LOG_LEVEL", "info")
		opts.Format = "json"
	}
	return opts
}

// build 创建 zap logger
//
// 控制台 core 按 Format 选择编码器；配置了文件路径时额外挂一个
// JSON 编码的 lumberjack core。
//
// Parameters:
//   - opts: 日志选项
//
// Returns:
//   - *zap.Logger: 配置好的 logger
//   - error: 初始化失败时返回错误
func build(opts Options) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	level.SetLevel(lvl)

	var consoleEncoder zapcore.Encoder
	if opts.Format == "json" {
		consoleEncoder = zapcore.NewJSONEncoder(productionEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(developmentEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	}

	if opts.File.Path != "" {
		// lumberjack 在首次写入时才创建文件
		rotator := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(productionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// developmentEncoderConfig 开发环境编码配置
//
// 彩色级别、短调用者、友好的时间格式（2024-01-29 15:04:05.123）
func developmentEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.999"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// productionEncoderConfig 生产环境编码配置
func productionEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

// SetLevel 运行时调整日志级别
//
// Parameters:
//   - lvl: 级别字符串，无法解析时保持原级别
func SetLevel(lvl string) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return
	}
	level.SetLevel(parsed)
}

// GetLogger 获取全局 logger 实例
//
// 如果日志系统未初始化，会按环境变量自动初始化。
//
// Returns: *zap.Logger - 全局 logger 实例
func GetLogger() *zap.Logger {
	if logger == nil {
		_ = InitLogger()
	}
	return logger
}

// GetSugaredLogger 获取全局 sugared logger 实例
//
// 适合非关键路径的日志记录。
//
// Returns: *zap.SugaredLogger - 全局 sugared logger 实例
func GetSugaredLogger() *zap.SugaredLogger {
	if sugar == nil {
		_ = InitLogger()
	}
	return sugar
}

// Sync 刷新日志缓冲区
//
// 应用退出前应该调用此方法确保所有日志都已写入。
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Debug 记录 Debug 级别日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 记录 Info 级别日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 记录 Warn 级别日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 记录 Error 级别日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal 记录 Fatal 级别日志后调用 os.Exit(1)
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// With 创建带有预设字段的 logger
//
// Parameters:
//   - fields: 预设的日志字段（如 component、session）
//
// Returns: *zap.Logger - 带有预设字段的 logger
func With(fields ...zap.Field) *zap.Logger {
	return GetLogger().With(fields...)
}

// getEnv 获取环境变量，不存在时返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
