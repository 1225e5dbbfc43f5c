package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/powerups/internal/cli/ui"
	"github.com/conduit-lang/powerups/runtime/graph"
)

func newDeriveCommand(a *app) *cobra.Command {
	var bare bool

	cmd := &cobra.Command{
		Use:   "derive <member>...",
		Short: "Print the lookup key derived from member names",
		Long: `Print the lookup key a wired member without an explicit path resolves to.

Underscores are removed, the first letter and every letter after an
underscore are capitalized, and the unique-name marker '%' is prepended.`,
		Example: `  powerups derive _my_ref
  # %MyRef

  powerups derive --bare player_sprite
  # PlayerSprite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := ui.NewTable(cmd.OutOrStdout(), a.noColor, "MEMBER", "KEY")
			for _, name := range args {
				key := graph.DeriveKey(name)
				if bare {
					key = graph.PascalCase(name)
				}
				if len(args) == 1 {
					fmt.Fprintln(cmd.OutOrStdout(), key)
					return nil
				}
				table.AddRow(name, key)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&bare, "bare", false, "Omit the unique-name marker")

	return cmd
}
