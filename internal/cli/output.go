package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// 退出码
const (
	ExitSuccess      = 0 // 正常退出
	ExitFailure      = 1 // 运行失败（连接失败、按键序列不合法等）
	ExitCommandError = 2 // 命令错误（配置无法加载、已有实例在运行等）
)

// ExitError 带退出码的错误
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError 为错误附加退出码
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode 从错误中取出退出码，不是 ExitError 时返回 ExitFailure
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter 按 --format 输出文本或 JSON
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response JSON 输出的统一结构
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// JSON 是否输出 JSON
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success 输出成功结果
//
// 文本格式下 text 负责渲染，JSON 格式下编码 data。
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer) error) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

// Failure 输出失败结果并返回带退出码的错误
func (f *OutputFormatter) Failure(code int, message string, err error) error {
	exitErr := WrapExitError(code, message, err)
	if f.JSON() {
		_ = json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: exitErr.Error()})
	} else {
		fmt.Fprintf(f.Writer, "Error: %s\n", exitErr.Error())
	}
	return exitErr
}
