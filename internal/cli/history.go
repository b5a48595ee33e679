package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/taskmgr/internal/manager"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recently viewed items",
		Long: `List the items most recently shown with "get", least recent first.

Each item appears once, at the position of its latest visit. Deleted items
drop out. The csv backend does not store the history, so it is empty at the
start of every invocation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				items := p.History()
				return f.Result(renderItems(items, "History is empty."), newItemViews(items))
			})
		},
	}
}
