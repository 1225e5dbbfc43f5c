package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/powerups/internal/cli/ui"
	"github.com/conduit-lang/powerups/internal/inspect"
	"github.com/conduit-lang/powerups/internal/scene"
)

func newDescribeCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe <scene>",
		Short: "Print the wiring schema of a scene file",
		Long: `Print the members every subject of a scene file declares, with the lookup
key each wired member resolves to.`,
		Example: `  powerups describe level.yaml
  powerups describe level.yaml --format table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.ScenePath(args[0])
			s, err := scene.Load(path)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.SceneError(path, err, a.noColor))
				return err
			}

			descriptions := inspect.Describe(s)
			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), descriptions)
			case "table":
				writeDescriptionTable(cmd.OutOrStdout(), descriptions, a.noColor)
				return nil
			default:
				return fmt.Errorf("unknown format %q: use json or table", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or table")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func writeDescriptionTable(w io.Writer, descriptions []inspect.SubjectDescription, noColor bool) {
	table := ui.NewTable(w, noColor, "NODE", "MEMBER", "TYPE", "ACCESS", "KEY")
	for _, d := range descriptions {
		for _, m := range d.Members {
			access := "r"
			if m.Mutable {
				access += "w"
			}
			if !m.Readable {
				access = strings.TrimPrefix(access, "r")
			}
			key := m.Key
			if key == "" {
				key = "-"
			}
			table.AddRow(d.Node, m.Name, m.Type, access, key)
		}
	}
	table.Render()
}
