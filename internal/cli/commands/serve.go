package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/internal/cli/ui"
	"github.com/conduit-lang/powerups/internal/inspect"
	"github.com/conduit-lang/powerups/internal/watch"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var (
		addr    string
		through string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scene checks over HTTP",
		Long: `Serve the scene files of the configured scene directory over HTTP.

  POST /token                  exchange a password for a token
  GET  /scenes                 list scene files
  GET  /scenes/{path}?through= check a scene and return the report
  GET  /schema/{path}          print the wiring schema of a scene
  GET  /ws                     receive a fresh report whenever a scene changes

When serve.secret is configured every route but /healthz requires a token
issued by "powerups token". POST /token is enabled when serve.password_hash
holds a hash printed by "powerups token --hash-password".`,
		Example: `  powerups serve
  powerups serve --addr 127.0.0.1:9000 --through ready`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			last, err := lifecycle.ParseNotification(through)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}

			opts := inspect.Options{Dir: a.cfg.Scene.Dir, Through: last, Logger: a.logger}
			if a.cfg.Serve.Secret != "" {
				if opts.Auth, err = inspect.NewAuth(a.cfg.Serve.Secret, a.cfg.Serve.TokenTTL); err != nil {
					return err
				}
				if h := a.cfg.Serve.PasswordHash; h != "" {
					if err := opts.Auth.SetPasswordHash(h); err != nil {
						return fmt.Errorf("serve.password_hash: %w", err)
					}
				}
			}
			srv := inspect.NewServer(opts)
			defer srv.Close()

			files, err := inspect.SceneFiles(a.cfg.Scene.Dir)
			if err != nil {
				return fmt.Errorf("failed to find scene files: %w", err)
			}
			dirs, err := sceneDirs(a.cfg.Scene.Dir, files)
			if err != nil {
				return err
			}
			fw, err := watch.NewFileWatcher(dirs, srv.ScenesChanged, watch.Options{Logger: a.logger})
			if err != nil {
				return err
			}
			if err := fw.Start(); err != nil {
				fw.Stop()
				return err
			}
			defer fw.Stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			return a.serve(cmd, ln, srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr)")
	cmd.Flags().StringVar(&through, "through", lifecycle.SceneInstantiated.String(),
		"Last lifecycle notification delivered by checks")

	return cmd
}

// sceneDirs returns root and every directory holding a scene file, so new
// scenes next to existing ones are picked up too.
func sceneDirs(root string, files []string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	dirs, _, err := watchSet(files)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(dirs, abs) {
		dirs = append([]string{abs}, dirs...)
	}
	return dirs, nil
}

// serve runs the HTTP server on ln until the command's context is cancelled.
func (a *app) serve(cmd *cobra.Command, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("serving %s on http://%s", a.cfg.Scene.Dir, ln.Addr()), a.noColor)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
