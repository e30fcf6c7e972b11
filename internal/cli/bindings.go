package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chenyang-zz/lrkeys/internal/keymap"
	"github.com/spf13/cobra"
)

// bindingView 绑定的输出格式
type bindingView struct {
	Chord  string `json:"chord"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Keys   string `json:"keys,omitempty"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
}

// NewBindingsCommand 创建 bindings 命令
func NewBindingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "Print the key binding table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return out.Failure(ExitCommandError, "load config", err)
			}
			table, err := cfg.KeyTable()
			if err != nil {
				return out.Failure(ExitCommandError, "build bindings", err)
			}

			positions := make(map[string][2]int, len(cfg.Layout.Buttons))
			for _, b := range cfg.Layout.Buttons {
				positions[b.Name] = [2]int{b.X, b.Y}
			}

			views := make([]bindingView, 0, table.Len())
			for _, b := range table.Bindings() {
				v := bindingView{Chord: b.Chord, Action: b.Action.Kind.String()}
				switch b.Action.Kind {
				case keymap.ActionClick:
					v.Target = b.Action.Target
					pos := positions[v.Target]
					v.X, v.Y = pos[0], pos[1]
				case keymap.ActionKeys:
					v.Keys = b.Action.Keys
				}
				views = append(views, v)
			}

			return out.Success(views, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tACTION\tPOSITION")
				for i, b := range table.Bindings() {
					position := "-"
					if b.Action.Kind == keymap.ActionClick {
						position = fmt.Sprintf("%d:%d", views[i].X, views[i].Y)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Chord, b.Action, position)
				}
				return tw.Flush()
			})
		},
	}
}
