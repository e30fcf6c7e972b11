/**
 * lrkeys 主入口文件
 *
 * 创建命令行并执行，按错误类型设置退出码
 */

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chenyang-zz/lrkeys/internal/cli"
	"github.com/chenyang-zz/lrkeys/pkg/logger"
)

func main() {
	err := cli.NewRootCommand().Execute()
	_ = logger.Sync()

	if err != nil {
		// ExitError 已经由命令输出过，其余错误（参数错误等）在这里打印
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
