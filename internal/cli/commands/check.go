package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/powerups/internal/cli/ui"
	"github.com/conduit-lang/powerups/internal/inspect"
	"github.com/conduit-lang/powerups/internal/watch"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
)

func newCheckCommand(a *app) *cobra.Command {
	var (
		through string
		all     bool
		watchFS bool
	)

	cmd := &cobra.Command{
		Use:   "check [scene]...",
		Short: "Wire the subjects of scene files",
		Long: `Load each scene file, wire the declared members of every subject and
report what each member resolved to.

Lookups consult the subject's fake entries first, then the scene tree. A
target that does not satisfy the member's type is adapted through the
capabilities declared in the scene file.`,
		Example: `  # Wire every subject of a scene
  powerups check level.yaml

  # Run the lifecycle through Ready and ExitingGraph as well
  powerups check level.yaml --through exiting_graph

  # Check every scene under the configured scene directory and keep
  # re-checking them as they change
  powerups check --all --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			last, err := lifecycle.ParseNotification(through)
			if err != nil {
				return err
			}

			paths, err := a.scenePaths(args, all)
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range paths {
				failed += a.checkScene(cmd, path, last)
			}

			if watchFS {
				return a.watchScenes(cmd, paths, last)
			}
			if failed > 0 {
				return fmt.Errorf("%d subject(s) failed to wire", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&through, "through", lifecycle.SceneInstantiated.String(),
		"Last lifecycle notification to deliver: scene_instantiated, ready or exiting_graph")
	cmd.Flags().BoolVar(&all, "all", false, "Check every scene file under the configured scene directory")
	cmd.Flags().BoolVar(&watchFS, "watch", false, "Re-check scene files when they change")

	return cmd
}

// scenePaths resolves the scene files named on the command line, or every
// scene file in the scene directory with --all.
func (a *app) scenePaths(args []string, all bool) ([]string, error) {
	if !all {
		if len(args) == 0 {
			return nil, fmt.Errorf("requires at least one scene file, or --all")
		}
		paths := make([]string, 0, len(args))
		for _, name := range args {
			paths = append(paths, a.cfg.ScenePath(name))
		}
		return paths, nil
	}

	paths, err := inspect.SceneFiles(a.cfg.Scene.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find scene files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scene files found in %s", a.cfg.Scene.Dir)
	}
	return paths, nil
}

// watchScenes re-checks scene files as they change until the command's
// context is cancelled.
func (a *app) watchScenes(cmd *cobra.Command, paths []string, last lifecycle.Notification) error {
	dirs, tracked, err := watchSet(paths)
	if err != nil {
		return err
	}

	fw, err := watch.NewFileWatcher(dirs, func(files []string) error {
		for _, f := range files {
			if abs, err := filepath.Abs(f); err == nil && tracked[abs] {
				a.checkScene(cmd, f, last)
			}
		}
		return nil
	}, watch.Options{Logger: a.logger})
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		fw.Stop()
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("watching %d scene file(s), press Ctrl+C to stop", len(paths)), a.noColor)
	<-cmd.Context().Done()
	return fw.Stop()
}

// watchSet returns the directories holding paths and the absolute form of
// every path.
func watchSet(paths []string) (dirs []string, tracked map[string]bool, err error) {
	tracked = make(map[string]bool, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, err
		}
		tracked[abs] = true
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs, tracked, nil
}

// checkScene wires every subject of one scene file and returns the number of
// subjects that failed.
func (a *app) checkScene(cmd *cobra.Command, path string, last lifecycle.Notification) int {
	out := cmd.OutOrStdout()

	r := inspect.Check(path, last, a.logger)
	if r.Err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.SceneError(path, r.Err, a.noColor))
		return r.Failed()
	}

	if len(r.Subjects) == 0 {
		fmt.Fprint(out, ui.Warning(fmt.Sprintf("%s declares no subjects", path), a.noColor))
		return 0
	}

	for _, sr := range r.Subjects {
		if sr.Err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), ui.WiringError(sr.Err, r.Candidates, a.noColor))
			continue
		}

		ui.WriteSuccess(out, fmt.Sprintf("%s (%s)", sr.Node, sr.State), a.noColor)
		if len(sr.Members) == 0 {
			continue
		}
		table := ui.NewTable(out, a.noColor, "MEMBER", "KEY", "TARGET")
		for _, m := range sr.Members {
			table.AddRow(m.Name, m.Key, m.Target)
		}
		table.Render()
	}
	return r.Failed()
}
