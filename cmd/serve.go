package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geodir/internal/api"
	"github.com/sells-group/geodir/internal/config"
	"github.com/sells-group/geodir/internal/enrich"
	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/search"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the geocoding worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		gc, err := newGeocoder(cfg.Geocode, pool, cfg.Enrich.MinInterval())
		if err != nil {
			return err
		}
		pipeline := newPipeline(cfg.Enrich, gc, store)

		var (
			dispatcher enrich.Dispatcher
			worker     *enrich.Worker
		)
		if cfg.Enrich.Async {
			worker = enrich.NewWorker(pipeline, cfg.Enrich.QueueSize)
			dispatcher = worker
		} else {
			dispatcher = enrich.SyncDispatcher{Pipeline: pipeline}
		}

		public := search.NewService(pool, search.ScopePublic, search.WithLanguage(cfg.Search.Language))
		internal := search.NewService(pool, search.ScopeInternal, search.WithLanguage(cfg.Search.Language))
		srv := api.New(apiConfig(cfg.Server, cfg.Categories), store, public, enrich.NewHook(dispatcher),
			api.WithAdmin(internal, pipeline),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port), zap.Bool("async_geocoding", worker != nil))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})

		if worker != nil {
			g.Go(func() error { return worker.Run(gctx) })
		}

		return g.Wait()
	},
}

// apiConfig maps the server configuration onto the API settings.
func apiConfig(sc config.ServerConfig, cc config.CategoriesConfig) api.Config {
	return api.Config{
		CORSOrigins:      sc.CORSOrigins,
		AdminEnabled:     sc.AdminEnabled,
		ReadRPS:          sc.ReadRPS,
		ReadBurst:        sc.ReadBurst,
		ProposalRPS:      sc.ProposalRPS,
		ProposalBurst:    sc.ProposalBurst,
		CategoryCacheTTL: time.Duration(sc.CategoryCacheSecs) * time.Second,
		DeletePolicy:     location.DeletePolicy(cc.DeletePolicy),
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
