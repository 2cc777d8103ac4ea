package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/logging"
	"github.com/KaramelBytes/profiloom/internal/metrics"
	"github.com/KaramelBytes/profiloom/internal/session"
	transport "github.com/KaramelBytes/profiloom/internal/transport/http"
	"github.com/spf13/cobra"
)

var (
	srvAddr       string
	srvSessionTTL time.Duration
	srvWarm       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interactive profiling dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = srvAddr
		}
		log := appLogger()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		cat := newCatalog(c)
		if srvWarm {
			go func() {
				if err := cat.Warm(ctx, catalog.Names()...); err != nil {
					log.Warn("catalog warm-up incomplete", "error", err)
				}
			}()
		}
		store := session.NewStore(session.Config{
			Minimal:     c.DefaultMinimal,
			DarkMode:    c.DefaultDarkMode,
			Explorative: c.DefaultExplorative,
		})
		srv := transport.NewServer(transport.Deps{
			Store: store,
			Workflow: &session.Workflow{
				Catalog:   cat,
				Generator: newProfiler(c),
				Seed:      c.SampleSeed,
				Metrics:   m,
				Logger:    logging.Component(log, "session"),
			},
			Catalog:        cat,
			Metrics:        m,
			Logger:         log,
			MaxUploadBytes: c.MaxUploadBytes(),
		})

		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			t := time.NewTicker(time.Minute)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-t.C:
					if n := store.Prune(srvSessionTTL, now); n > 0 {
						log.Debug("pruned idle sessions", "count", n)
					}
				}
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			log.Info("dashboard listening", "addr", addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", ":8501", "listen address (overrides config)")
	serveCmd.Flags().DurationVar(&srvSessionTTL, "session-ttl", 2*time.Hour, "drop sessions idle for longer than this")
	serveCmd.Flags().BoolVar(&srvWarm, "warm", false, "download every catalog dataset at startup")
}
