package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/internal/cli/config"
	"github.com/conduit-lang/powerups/internal/cli/ui"
	"github.com/conduit-lang/powerups/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

// setup loads the configuration and builds the logger. Flags override the
// configuration file.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), a.noColor))
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if !cfg.Output.Color {
		a.noColor = true
	}
	if a.noColor {
		color.NoColor = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), a.noColor))
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "powerups",
		Short: "Reference wiring and resource tracking for scene graphs",
		Long: color.CyanString(`powerups - reference wiring for scene-graph objects

Objects in a scene graph declare the nodes they depend on. powerups resolves
each declaration to a node, checks its type and adapts it to a capability view
when needed. Resources the objects own are released when they leave the graph.

Commands:
  • check     wire the subjects of a scene file and report the result
  • derive    print the lookup key derived from a member name
  • describe  print the wiring schema of a scene file
  • init      create a powerups.yml and an example scene
  • serve     serve scene checks over HTTP and websocket
  • token     issue a token for serve
  • lsp       run the scene file language server`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./powerups.yml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newDeriveCommand(a))
	rootCmd.AddCommand(newDescribeCommand(a))
	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newTokenCommand(a))
	rootCmd.AddCommand(newLSPCommand(a))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the powerups version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			w := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(w, "powerups version: ")
			valueColor.Fprintln(w, Version)

			titleColor.Fprint(w, "Git commit: ")
			valueColor.Fprintln(w, GitCommit)

			titleColor.Fprint(w, "Build date: ")
			valueColor.Fprintln(w, BuildDate)

			titleColor.Fprint(w, "Go version: ")
			valueColor.Fprintln(w, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx. Long-running subcommands
// such as check --watch stop when ctx is cancelled.
func ExecuteContext(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
