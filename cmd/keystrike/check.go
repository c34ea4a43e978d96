package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/keystrike/internal/config"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a shortcut file",
		Long: `Parse a shortcut file and check every shortcut against its key and
modifier tables. All invalid shortcuts are reported.

Examples:
  keystrike check keys.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			f, err := config.Load(args[0])
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
				return err
			}
			_, _ = fmt.Fprintf(out, "✓ %s parsed\n", args[0])

			if err := f.Validate(); err != nil {
				var joined interface{ Unwrap() []error }
				if errors.As(err, &joined) {
					for _, e := range joined.Unwrap() {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", e)
					}
				} else {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
				}
				return errors.New("shortcut file has invalid shortcuts")
			}

			bindings := 0
			for _, bs := range f.Shortcuts {
				bindings += len(bs)
			}
			g.logger.WithField("path", args[0]).Debug("shortcut file valid")
			_, _ = fmt.Fprintf(out, "✓ %d shortcuts, %d bindings valid\n", len(f.Shortcuts), bindings)
			return nil
		},
	}
	return cmd
}
