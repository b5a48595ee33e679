package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskmgr/internal/manager"
	"github.com/roach88/taskmgr/internal/task"
)

// ItemOptions holds flags for the create and update commands.
type ItemOptions struct {
	*RootOptions
	Kind        task.Kind
	Name        string
	Description string
	Status      string
	Epic        int
}

// ItemView is the JSON form of an item. Epics list their subtask ids.
type ItemView struct {
	*task.Item
	Subtasks []int `json:"subtasks,omitempty"`
}

func newItemView(it *task.Item) ItemView {
	v := ItemView{Item: it}
	if it.Kind == task.KindEpic {
		v.Subtasks = it.SubtaskIDs()
	}
	return v
}

func newItemViews(items []*task.Item) []ItemView {
	views := make([]ItemView, len(items))
	for i, it := range items {
		views[i] = newItemView(it)
	}
	return views
}

// noun returns the lower-case command name for kind.
func noun(kind task.Kind) string {
	return strings.ToLower(kind.String())
}

// NewItemCommand creates the command group for one kind of item.
func NewItemCommand(rootOpts *RootOptions, kind task.Kind) *cobra.Command {
	name := noun(kind)

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage %ss", name),
	}

	cmd.AddCommand(newListCommand(rootOpts, kind))
	cmd.AddCommand(newGetCommand(rootOpts, kind))
	cmd.AddCommand(newCreateCommand(rootOpts, kind))
	cmd.AddCommand(newUpdateCommand(rootOpts, kind))
	cmd.AddCommand(newDeleteCommand(rootOpts, kind))
	cmd.AddCommand(newClearCommand(rootOpts, kind))

	return cmd
}

func newListCommand(opts *RootOptions, kind task.Kind) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         fmt.Sprintf("List all %ss", noun(kind)),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				items := p.List(kind)
				return f.Result(renderItems(items, fmt.Sprintf("No %ss.", noun(kind))), newItemViews(items))
			})
		},
	}
}

func newGetCommand(opts *RootOptions, kind task.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show a %s and record the visit in the history", noun(kind)),
		Long: fmt.Sprintf(`Show a %s and record the visit in the history.

The history is saved only by the sqlite and memory backends.`, noun(kind)),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				id, err := parseID(f, args[0])
				if err != nil {
					return err
				}
				it, ok, err := p.Get(ctx, kind, id)
				if err != nil {
					return failStore(f, err)
				}
				if !ok {
					return failStore(f, task.NewNotFoundError("get", kind, id))
				}
				return f.Result(renderDetail(it), newItemView(it))
			})
		},
	}
}

func newCreateCommand(rootOpts *RootOptions, kind task.Kind) *cobra.Command {
	opts := &ItemOptions{RootOptions: rootOpts, Kind: kind}

	cmd := &cobra.Command{
		Use:           "create",
		Short:         fmt.Sprintf("Create a %s", noun(kind)),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				status := task.StatusNew
				if kind != task.KindEpic {
					var err error
					if status, err = parseStatus(f, opts.Status); err != nil {
						return err
					}
				}

				var item *task.Item
				switch kind {
				case task.KindTask:
					item = task.NewTask(opts.Name, opts.Description, status)
				case task.KindEpic:
					item = task.NewEpic(opts.Name, opts.Description)
				case task.KindSubtask:
					item = task.NewSubtask(opts.Name, opts.Description, status, opts.Epic)
				}

				created, err := p.Create(ctx, item)
				if err != nil {
					return failStore(f, err)
				}
				if kind == task.KindSubtask {
					if _, ok := p.Peek(task.KindEpic, created.EpicID); !ok {
						f.VerboseLog("epic %d does not exist; subtask %d is stored unattached", created.EpicID, created.ID)
					}
				}
				return f.Result("Created "+created.String(), newItemView(created))
			})
		},
	}

	addItemFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("name")
	if kind == task.KindSubtask {
		_ = cmd.MarkFlagRequired("epic")
	}
	return cmd
}

func newUpdateCommand(rootOpts *RootOptions, kind task.Kind) *cobra.Command {
	opts := &ItemOptions{RootOptions: rootOpts, Kind: kind}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update a %s", noun(kind)),
		Long: fmt.Sprintf(`Update a %s. Only the given flags change.

An epic's status is derived from its subtasks and cannot be set.
A subtask cannot move to another epic.`, noun(kind)),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				id, err := parseID(f, args[0])
				if err != nil {
					return err
				}
				current, ok := p.Peek(kind, id)
				if !ok {
					return failStore(f, task.NewNotFoundError("update", kind, id))
				}

				next := &task.Item{
					ID:          current.ID,
					Kind:        current.Kind,
					Name:        current.Name,
					Description: current.Description,
					Status:      current.Status,
					EpicID:      current.EpicID,
				}
				flags := cmd.Flags()
				if flags.Changed("name") {
					next.Name = opts.Name
				}
				if flags.Changed("description") {
					next.Description = opts.Description
				}
				if flags.Changed("status") {
					if next.Status, err = parseStatus(f, opts.Status); err != nil {
						return err
					}
				}
				if flags.Changed("epic") {
					next.EpicID = opts.Epic
				}

				updated, err := p.Update(ctx, next)
				if err != nil {
					return failStore(f, err)
				}
				return f.Result("Updated "+updated.String(), newItemView(updated))
			})
		},
	}

	addItemFlags(cmd, opts)
	return cmd
}

func newDeleteCommand(opts *RootOptions, kind task.Kind) *cobra.Command {
	short := fmt.Sprintf("Delete a %s", noun(kind))
	if kind == task.KindEpic {
		short = "Delete an epic and all of its subtasks"
	}

	return &cobra.Command{
		Use:           "delete <id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				id, err := parseID(f, args[0])
				if err != nil {
					return err
				}
				ok, err := p.Delete(ctx, kind, id)
				if err != nil {
					return failStore(f, err)
				}
				if !ok {
					return failStore(f, task.NewNotFoundError("delete", kind, id))
				}
				return f.Result(fmt.Sprintf("Deleted %s#%d", kind, id),
					map[string]interface{}{"type": kind, "id": id})
			})
		},
	}
}

func newClearCommand(opts *RootOptions, kind task.Kind) *cobra.Command {
	short := fmt.Sprintf("Delete every %s", noun(kind))
	switch kind {
	case task.KindEpic:
		short = "Delete every epic and every subtask"
	case task.KindSubtask:
		short = "Delete every subtask and reset every epic to NEW"
	}

	return &cobra.Command{
		Use:           "clear",
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, p *manager.Persistent, f *OutputFormatter) error {
				if err := p.Clear(ctx, kind); err != nil {
					return failStore(f, err)
				}
				return f.Result(fmt.Sprintf("Cleared %ss", noun(kind)),
					map[string]interface{}{"cleared": kind})
			})
		},
	}
}

// addItemFlags registers the record flags that apply to the kind.
func addItemFlags(cmd *cobra.Command, opts *ItemOptions) {
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	if opts.Kind != task.KindEpic {
		cmd.Flags().StringVar(&opts.Status, "status", task.StatusNew.String(), "status (NEW|IN_PROGRESS|DONE)")
	}
	if opts.Kind == task.KindSubtask {
		cmd.Flags().IntVar(&opts.Epic, "epic", 0, "id of the owning epic")
	}
}

func parseID(f *OutputFormatter, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fail(f, ErrCodeArgument, ExitCommandError, fmt.Sprintf("invalid id %q: must be a positive integer", arg))
	}
	return id, nil
}

func parseStatus(f *OutputFormatter, arg string) (task.Status, error) {
	status, err := task.ParseStatus(strings.ToUpper(arg))
	if err != nil {
		return 0, fail(f, ErrCodeArgument, ExitCommandError, err.Error())
	}
	return status, nil
}

// renderItems prints one item per line, or empty when there are none.
func renderItems(items []*task.Item, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}

// renderDetail prints an item with its description and, for epics, its
// subtasks.
func renderDetail(it *task.Item) string {
	var b strings.Builder
	b.WriteString(it.String())
	if it.Description != "" {
		fmt.Fprintf(&b, "\n  %s", it.Description)
	}
	if it.Kind == task.KindEpic {
		for _, sub := range it.Subtasks() {
			fmt.Fprintf(&b, "\n  - %s", sub.String())
		}
	}
	return b.String()
}
