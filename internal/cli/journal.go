package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/chenyang-zz/lrkeys/internal/infrastructure/storage"
	"github.com/spf13/cobra"
)

// JournalOptions journal 命令参数
type JournalOptions struct {
	Limit   int
	Session string
}

// NewJournalCommand 创建 journal 命令
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print recent commands from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return out.Failure(ExitCommandError, "load config", err)
			}
			if opts.Limit <= 0 {
				return out.Failure(ExitCommandError, "invalid --limit", fmt.Errorf("must be positive, got %d", opts.Limit))
			}

			path := cfg.Journal.Path
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return out.Failure(ExitCommandError, "journal not found", fmt.Errorf("%s (enable journal in the config)", path))
			}

			db, err := storage.OpenJournal(path)
			if err != nil {
				return out.Failure(ExitCommandError, "open journal", err)
			}
			defer db.Close()

			repo := storage.NewSQLiteJournalRepository(db)
			var entries []storage.JournalEntry
			if opts.Session != "" {
				entries, err = repo.FindBySession(opts.Session, opts.Limit)
			} else {
				entries, err = repo.FindRecent(opts.Limit)
			}
			if err != nil {
				return out.Failure(ExitFailure, "query journal", err)
			}
			if entries == nil {
				entries = []storage.JournalEntry{}
			}

			return out.Success(entries, func(w io.Writer) error {
				return writeJournal(w, entries)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of rows")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only rows of this session, oldest first")

	return cmd
}

func writeJournal(w io.Writer, entries []storage.JournalEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tSESSION\tSEQ\tKEY\tTARGET\tERROR")
	for _, e := range entries {
		session := e.SessionID
		if len(session) > 8 {
			session = session[:8]
		}
		seq := "-"
		if e.Seq > 0 {
			seq = fmt.Sprint(e.Seq)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05.000"),
			e.Type, session, seq, dash(e.Key), dash(e.Target), dash(e.Error))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
