package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/powerups/internal/lsp"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
)

func newLSPCommand(a *app) *cobra.Command {
	var through string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the scene file language server",
		Long: `Run a Language Server Protocol server over stdin and stdout.

Open scene files are checked as they change. Wiring failures are published as
diagnostics on the member that failed, lookup keys are offered as
completions and hovering a member shows the node it resolved to. Logs go to
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			last, err := lifecycle.ParseNotification(through)
			if err != nil {
				return err
			}
			return lsp.NewServer(a.logger, last).Run(cmd.Context(), lsp.Stdio{})
		},
	}

	cmd.Flags().StringVar(&through, "through", lifecycle.SceneInstantiated.String(),
		"Last lifecycle notification delivered by checks")

	return cmd
}
