package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/taskmgr/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Long: fmt.Sprintf(`Write the annotated default configuration to path (default %s).

An existing file is kept unless --force is given.`, DefaultConfigPath),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			path := DefaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			if !opts.Force {
				_, err := os.Stat(path)
				if err == nil {
					return fail(f, ErrCodeArgument, ExitCommandError,
						fmt.Sprintf("%s already exists (use --force to overwrite)", path))
				}
				if !errors.Is(err, fs.ErrNotExist) {
					return fail(f, ErrCodeGeneric, ExitCommandError, err.Error())
				}
			}

			if err := config.WriteDefault(path); err != nil {
				return fail(f, ErrCodeGeneric, ExitCommandError, fmt.Sprintf("writing %s: %v", path, err))
			}
			return f.Result("Wrote "+path, map[string]string{"path": path})
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")
	return cmd
}
