package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/dshills/keystrike/internal/shortcuts"
)

var (
	listHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true).
			Padding(0, 1)

	listCellStyle = lipgloss.NewStyle().Padding(0, 1)

	listEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)
)

// NewListCommand creates the list command.
func NewListCommand(g *globalOptions) *cobra.Command {
	var (
		opts   serviceOptions
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered shortcuts",
		Long: `Register the shortcuts from a file and/or script and print them in
registry order: single keys, then combos, then sequences.

Examples:
  keystrike list -c keys.toml
  keystrike list -c keys.toml --script extra.lua --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid format %q (must be table or json)", format)
			}

			_, svc, script, err := opts.build(g.logger)
			if err != nil {
				return err
			}
			defer svc.Close()
			if script != nil {
				defer func() { _ = script.Close() }()
			}

			regs := svc.Registrations()
			if format == "json" {
				out, err := registrationsJSON(regs)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}
			return writeTable(cmd.OutOrStdout(), regs)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	return cmd
}

func registrationsJSON(regs []shortcuts.Registration) (string, error) {
	out := "[]"
	for i, r := range regs {
		prefix := strconv.Itoa(i) + "."
		fields := []struct {
			path  string
			value any
		}{
			{"id", r.Trigger.ID},
			{"shortcut", r.Trigger.Shortcut},
			{"kind", r.Trigger.Kind.String()},
			{"event", r.EventName},
			{"selector", r.Trigger.Selector},
			{"policy", policy(r)},
			{"declared", r.Declared},
		}

		var err error
		for _, f := range fields {
			if out, err = sjson.Set(out, prefix+f.path, f.value); err != nil {
				return "", err
			}
		}
	}
	return out, nil
}

func writeTable(w io.Writer, regs []shortcuts.Registration) error {
	if len(regs) == 0 {
		_, err := fmt.Fprintln(w, listEmptyStyle.Render("no shortcuts registered"))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("SHORTCUT", "KIND", "EVENT", "SELECTOR", "POLICY", "SOURCE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			return listCellStyle
		})

	for _, r := range regs {
		source := "script"
		if r.Declared {
			source = "file"
		}
		sel := r.Trigger.Selector
		if sel == "" {
			sel = "(default)"
		}
		t.Row(r.Trigger.Shortcut, r.Trigger.Kind.String(), r.EventName, sel, policy(r), source)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func policy(r shortcuts.Registration) string {
	if r.EventName == "" {
		return "none"
	}
	return r.Throttle.String()
}
