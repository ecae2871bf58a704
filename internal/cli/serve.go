package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/wtmux/wtmux/internal/checks"
	"github.com/wtmux/wtmux/internal/config"
	"github.com/wtmux/wtmux/internal/relay"
	"github.com/wtmux/wtmux/internal/session"
	"github.com/wtmux/wtmux/internal/statesync"
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the room-based relay server",
		Long: `Relay is a WebSocket broker: clients join a named room and every
frame a client sends is relayed verbatim to the other room members.
Payloads are opaque; the server imposes no schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var validate relay.TokenValidator
			if cfg.Relay.Token != "" {
				want := cfg.Relay.Token
				validate = func(ctx context.Context, room, clientID, token string) bool {
					return token == want
				}
			}

			srv := relay.NewServer(relay.Options{
				Path:              cfg.Relay.Path,
				HeartbeatInterval: time.Duration(cfg.Relay.HeartbeatMS) * time.Millisecond,
				MaxClientsPerRoom: cfg.Relay.MaxClientsPerRoom,
				ValidateToken:     validate,
				Logger:            slog.Default(),
			})
			go srv.Run()
			defer srv.Stop()

			r := chi.NewRouter()
			r.Use(middleware.RequestID, middleware.Recoverer)
			r.HandleFunc("/*", srv.ServeHTTP)

			addr := fmt.Sprintf("%s:%d", cfg.Relay.Host, cfg.Relay.Port)
			slog.Info("relay listening", "addr", addr, "path", cfg.Relay.Path)
			return listenUntilSignal(addr, r)
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the worktree-state sync server",
		Long: `Sync periodically recomputes a versioned snapshot of every feature
worktree's session state and pushes it to subscribed WebSocket clients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := newManager()
			if err != nil {
				return err
			}

			watchDirs := []string{cfg.ProjectsBase}
			for _, project := range mgr.Projects() {
				watchDirs = append(watchDirs, mgr.ArchiveDir(project))
			}

			builder := &statesync.Snapshotter{
				Manager: mgr,
				Dir:     session.TmuxDirectory{},
				Checks:  checks.GHProvider{},
			}
			srv := statesync.NewServer(builder, statesync.Options{
				Path:            cfg.Sync.Path,
				RefreshInterval: time.Duration(cfg.Sync.RefreshMS) * time.Millisecond,
				WatchDirs:       watchDirs,
				Logger:          slog.Default(),
			})
			go srv.Run()
			defer srv.Stop()

			r := chi.NewRouter()
			r.Use(middleware.RequestID, middleware.Recoverer)
			r.HandleFunc(cfg.Sync.Path, srv.ServeHTTP)

			addr := fmt.Sprintf("%s:%d", cfg.Sync.Host, cfg.Sync.Port)
			slog.Info("sync listening", "addr", addr, "path", cfg.Sync.Path)
			return listenUntilSignal(addr, r)
		},
	}
}

// listenUntilSignal serves HTTP until SIGINT/SIGTERM, then shuts down
// gracefully, closing open connections.
func listenUntilSignal(addr string, handler http.Handler) error {
	httpSrv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
