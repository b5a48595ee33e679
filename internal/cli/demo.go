package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskmgr/internal/manager"
	"github.com/roach88/taskmgr/internal/task"
)

// DemoSection is one printed block of the demo.
type DemoSection struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through the store on a throwaway in-memory backend",
		Long: `Create two tasks and two epics with subtasks, update them, browse a few
items and delete some, printing the store after each stage.

Runs against a fresh in-memory store; the configured backend is untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			sections, err := runDemo(cmd.Context(), opts)
			if err != nil {
				return failStore(f, err)
			}
			return f.Result(renderDemo(sections), sections)
		},
	}
}

// demo runs store calls until the first error.
type demo struct {
	ctx      context.Context
	p        *manager.Persistent
	sections []DemoSection
	err      error
}

func runDemo(ctx context.Context, opts *RootOptions) ([]DemoSection, error) {
	cfg, logger := opts.settings()
	p, err := manager.Open(ctx, manager.NewMemoryBackend(),
		manager.WithHistoryLimit(cfg.History.Limit),
		manager.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	d := &demo{ctx: ctx, p: p}

	task1 := d.create(task.NewTask("Task 1", "Description of Task 1", task.StatusNew))
	task2 := d.create(task.NewTask("Task 2", "Description of Task 2", task.StatusInProgress))
	epic1 := d.create(task.NewEpic("Epic 1", "Description of Epic 1"))
	epic2 := d.create(task.NewEpic("Epic 2", "Description of Epic 2"))
	sub1 := d.create(task.NewSubtask("Subtask 1", "Description of Subtask 1", task.StatusNew, epic1.ID))
	sub2 := d.create(task.NewSubtask("Subtask 2", "Description of Subtask 2", task.StatusInProgress, epic1.ID))
	d.create(task.NewSubtask("Subtask 3", "Description of Subtask 3", task.StatusDone, epic2.ID))

	d.list("Tasks", task.KindTask)
	d.list("Epics", task.KindEpic)
	d.list("Subtasks", task.KindSubtask)

	task1.Status = task.StatusDone
	d.update(task1)
	sub1.Status = task.StatusInProgress
	d.update(sub1)
	sub2.Status = task.StatusDone
	d.update(sub2)
	d.list("Epics after updates", task.KindEpic)

	d.get(task.KindTask, task1.ID)
	d.get(task.KindEpic, epic1.ID)
	d.get(task.KindSubtask, sub1.ID)
	d.get(task.KindTask, task2.ID)
	d.get(task.KindTask, task1.ID)
	d.history("History after browsing")

	d.delete(task.KindTask, task1.ID)
	d.history(fmt.Sprintf("History after deleting %s", task1.Name))

	d.delete(task.KindEpic, epic1.ID)
	d.history(fmt.Sprintf("History after deleting %s and its subtasks", epic1.Name))

	d.clear(task.KindTask)
	d.clear(task.KindEpic)
	if d.err == nil {
		d.sections = append(d.sections, DemoSection{
			Title: "Counts after clearing tasks and epics",
			Lines: []string{
				fmt.Sprintf("tasks: %d", len(p.List(task.KindTask))),
				fmt.Sprintf("epics: %d", len(p.List(task.KindEpic))),
				fmt.Sprintf("subtasks: %d", len(p.List(task.KindSubtask))),
			},
		})
	}

	if d.err != nil {
		return nil, d.err
	}
	return d.sections, nil
}

func (d *demo) create(it *task.Item) *task.Item {
	if d.err == nil {
		_, d.err = d.p.Create(d.ctx, it)
	}
	return it
}

func (d *demo) update(it *task.Item) {
	if d.err == nil {
		_, d.err = d.p.Update(d.ctx, it)
	}
}

func (d *demo) get(kind task.Kind, id int) {
	if d.err == nil {
		_, _, d.err = d.p.Get(d.ctx, kind, id)
	}
}

func (d *demo) delete(kind task.Kind, id int) {
	if d.err == nil {
		_, d.err = d.p.Delete(d.ctx, kind, id)
	}
}

func (d *demo) clear(kind task.Kind) {
	if d.err == nil {
		d.err = d.p.Clear(d.ctx, kind)
	}
}

func (d *demo) list(title string, kind task.Kind) {
	if d.err == nil {
		d.add(title, d.p.List(kind))
	}
}

func (d *demo) history(title string) {
	if d.err == nil {
		d.add(title, d.p.History())
	}
}

func (d *demo) add(title string, items []*task.Item) {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.String()
	}
	d.sections = append(d.sections, DemoSection{Title: title, Lines: lines})
}

func renderDemo(sections []DemoSection) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Title + ":")
		if len(s.Lines) == 0 {
			b.WriteString("\n  (none)")
		}
		for _, line := range s.Lines {
			b.WriteString("\n  " + line)
		}
	}
	return b.String()
}
