package cli

import (
	"fmt"
	"io"

	"github.com/chenyang-zz/lrkeys/internal/sendkeys"
	"github.com/spf13/cobra"
)

// NewCheckKeysCommand 创建 check-keys 命令
//
// 解析按键序列并逐行打印按下与释放，不发送任何输入。
func NewCheckKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "check-keys <sequence>",
		Short:   "Parse a key sequence and print its strokes",
		Example: `  lrkeys check-keys "^%v"` + "\n" + `  lrkeys check-keys "{VK_NUMPAD7 3}~"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			strokes, err := sendkeys.Parse(args[0])
			if err != nil {
				return out.Failure(ExitFailure, "invalid key sequence", err)
			}

			lines := make([]string, len(strokes))
			for i, s := range strokes {
				lines[i] = s.String()
			}

			return out.Success(lines, func(w io.Writer) error {
				for _, line := range lines {
					fmt.Fprintln(w, line)
				}
				return nil
			})
		},
	}
}
