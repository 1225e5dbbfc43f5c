package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/powerups/internal/cli/config"
	"github.com/conduit-lang/powerups/internal/cli/ui"
)

const exampleScene = `# Wire the Player's references when the scene is instantiated.
root:
  name: Main
  children:
    - name: Player
      type: CharacterBody2D
      unique: true
      children:
        - name: Sprite
          type: Sprite2D
subjects:
  - node: "%Player"
    members:
      - name: _sprite
        type: Sprite2D
        path: Sprite
`

func newInitCommand(a *app) *cobra.Command {
	var (
		sceneDir    string
		level       string
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a powerups.yml and an example scene",
		Long: `Write a powerups.yml into dir (the working directory by default), create
the scene directory it points at and add an example scene to it.`,
		Example: `  # Accept the defaults
  powerups init

  # Choose the settings interactively
  powerups init -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			if interactive {
				if err := survey.AskOne(&survey.Input{
					Message: "Scene directory:",
					Default: sceneDir,
				}, &sceneDir, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
				if err := survey.AskOne(&survey.Select{
					Message: "Log level:",
					Options: []string{"debug", "info", "warn", "error"},
					Default: level,
				}, &level); err != nil {
					return err
				}
			}

			cfg := config.Default()
			cfg.Log.Level = level
			cfg.Scene.Dir = sceneDir
			cfg.Output.Color = !a.noColor

			if err := os.MkdirAll(filepath.Join(root, sceneDir), 0755); err != nil {
				return fmt.Errorf("failed to create scene directory: %w", err)
			}

			cfgPath := filepath.Join(root, "powerups.yml")
			if err := config.Write(cfgPath, cfg, force); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), a.noColor))
				return err
			}

			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, "created "+cfgPath, a.noColor)

			scenePath := filepath.Join(root, sceneDir, "example.yaml")
			if _, err := os.Stat(scenePath); err == nil && !force {
				fmt.Fprint(out, ui.Warning(scenePath+" already exists, leaving it alone", a.noColor))
				return nil
			}
			if err := os.WriteFile(scenePath, []byte(exampleScene), 0644); err != nil {
				return fmt.Errorf("failed to write example scene: %w", err)
			}
			ui.WriteSuccess(out, "created "+scenePath, a.noColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&sceneDir, "scene-dir", "scenes", "Directory holding scene files")
	cmd.Flags().StringVar(&level, "level", "warn", "Log level written to the config")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for each setting")

	return cmd
}
