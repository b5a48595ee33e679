package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskmgr/internal/config"
	"github.com/roach88/taskmgr/internal/store"
)

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List the snapshots retained in the SQLite database",
		Long: `List the snapshots retained in the SQLite database, oldest first.

Requires the sqlite backend (--db or storage.backend: sqlite). How many
snapshots are kept is set by storage.retain.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			cfg, logger := opts.settings()
			if cfg.Storage.Backend != config.BackendSQLite {
				return fail(f, ErrCodeArgument, ExitCommandError,
					fmt.Sprintf("snapshots needs the sqlite backend, not %s (use --db)", cfg.Storage.Backend))
			}

			st, err := store.Open(cfg.Storage.Path, store.WithRetain(cfg.Storage.Retain), store.WithLogger(logger))
			if err != nil {
				return fail(f, ErrCodeStorage, ExitCommandError, err.Error())
			}
			defer st.Close()

			infos, err := st.ListSnapshots(cmd.Context())
			if err != nil {
				return fail(f, ErrCodeStorage, ExitCommandError, err.Error())
			}
			return f.Result(renderSnapshots(infos), infos)
		},
	}
}

func renderSnapshots(infos []store.SnapshotInfo) string {
	if len(infos) == 0 {
		return "No snapshots."
	}
	lines := make([]string, len(infos))
	for i, info := range infos {
		lines[i] = fmt.Sprintf("%4d  %s  %d items", info.Seq, info.ID, info.Items)
	}
	return strings.Join(lines, "\n")
}
