package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"typedkv/internal/aof"
	internalcmd "typedkv/internal/cmd"
	"typedkv/internal/config"
	"typedkv/internal/logger"
	"typedkv/internal/server"
	"typedkv/internal/snapshot"
	"typedkv/internal/stats"
	"typedkv/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-memory RESP server",
		Long: `Run a Redis-compatible in-memory server.

The server speaks RESP2 and supports the string, hash, list, set and sorted
set commands the typed accessor uses. With --snapshot the keyspace is loaded
at start and saved periodically and on shutdown. With --aof every write is
appended to a log that is replayed at start and takes precedence over the
snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a.cfg, nil)
		},
	}

	// server
	serveCmd.Flags().String("addr", "127.0.0.1:6380", "Listen address")
	serveCmd.Flags().Int("max-connections", 10000, "Maximum concurrent client connections")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")

	// snapshot
	serveCmd.Flags().String("snapshot", "", "RDB snapshot file (disabled when empty)")
	serveCmd.Flags().Duration("snapshot-interval", 5*time.Minute, "Interval between snapshots, 0 saves only on shutdown")

	// append-only file
	serveCmd.Flags().String("aof", "", "Append-only file (disabled when empty)")
	serveCmd.Flags().String("aof-fsync", "everysec", "When to fsync the append-only file (always, everysec, no)")

	return serveCmd
}

// listening reports the bound addresses once the server accepts connections
type listening struct {
	Addr        string
	MetricsAddr string
}

// runServe runs the server until ctx is done
func runServe(ctx context.Context, cfg *config.Config, started func(listening)) error {
	db := store.NewDB()
	defer db.Close()

	replayed, err := replayAOF(cfg, db)
	if err != nil {
		return err
	}
	if path := cfg.Snapshot.Path; path != "" && !replayed {
		if _, err := snapshot.Load(path, db); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}
			logger.Infof("No snapshot at %s, starting empty", path)
		}
	}

	var journal *aof.Writer
	if path := cfg.AOF.Path; path != "" {
		journal, err = aof.NewWriter(path, cfg.Fsync(), aof.RewritePolicy{
			MinSize:    cfg.AOF.RewriteMinSize,
			Percentage: cfg.AOF.RewritePercentage,
		})
		if err != nil {
			return err
		}
		defer journal.Close()
		if !replayed && db.Len() > 0 {
			// seed the new log with what the snapshot loaded
			if err := journal.Rewrite(db); err != nil {
				return err
			}
		}
	}

	st := stats.NewManager()
	if err := st.TrackKeys(db.Len); err != nil {
		return err
	}

	srvCfg := server.Config{
		Addr:           cfg.Server.Addr,
		MaxConnections: cfg.Server.MaxConnections,
	}
	if journal != nil {
		srvCfg.Journal = journal
	}
	srv := server.New(srvCfg, db, st)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Close()

	info := listening{Addr: srv.Addr()}

	var metrics *http.Server
	if cfg.Server.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.Server.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		metrics = &http.Server{Handler: metricsRouter(st), ReadHeaderTimeout: 5 * time.Second}
		info.MetricsAddr = ln.Addr().String()
		go func() {
			if err := metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
		logger.Infof("Metrics available on http://%s/metrics", info.MetricsAddr)
	}

	saverCtx, stopSaver := context.WithCancel(context.Background())
	defer stopSaver()
	saverDone := make(chan error, 1)
	if path := cfg.Snapshot.Path; path != "" {
		saver := snapshot.NewSaver(path, cfg.Snapshot.Interval, db)
		go func() { saverDone <- saver.Run(saverCtx) }()
	} else {
		saverDone <- nil
	}

	rewriteCtx, stopRewrites := context.WithCancel(context.Background())
	defer stopRewrites()
	rewritesDone := make(chan struct{})
	if journal != nil {
		go func() {
			defer close(rewritesDone)
			journal.RunRewrites(rewriteCtx, time.Second, db, srv.Exclusive)
		}()
	} else {
		close(rewritesDone)
	}

	logger.Infof("Server started on %s", info.Addr)
	if started != nil {
		started(info)
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// no client writes may land after the final snapshot
	if err := srv.Close(); err != nil {
		logger.Errorf("Error closing server: %v", err)
	}
	if metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Error closing metrics server: %v", err)
		}
		cancel()
	}
	stopRewrites()
	<-rewritesDone
	stopSaver()
	saveErr := <-saverDone

	if journal != nil {
		if err := journal.Close(); err != nil {
			logger.Errorf("Error closing aof: %v", err)
		}
	}
	if saveErr != nil {
		return fmt.Errorf("final snapshot failed: %w", saveErr)
	}
	return nil
}

// replayAOF rebuilds db from the append-only file and reports whether one was
// found. A partial command left at the end by a crash is cut off.
func replayAOF(cfg *config.Config, db store.DataStore) (bool, error) {
	path := cfg.AOF.Path
	if path == "" {
		return false, nil
	}

	registry := internalcmd.NewRegistry()
	internalcmd.RegisterCommands(registry, db, nil)

	start := time.Now()
	result, err := aof.Replay(path, func(words []string) error {
		_, err := registry.Execute(words)
		return err
	})
	if errors.Is(err, os.ErrNotExist) {
		logger.Infof("No append-only file at %s", path)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if result.Truncated {
		if err := os.Truncate(path, result.ValidSize); err != nil {
			return false, fmt.Errorf("failed to truncate aof: %w", err)
		}
	}
	logger.Infof("Replayed %d commands from %s in %s", result.Commands, path, time.Since(start))
	return true, nil
}

func metricsRouter(st *stats.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", st.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}
