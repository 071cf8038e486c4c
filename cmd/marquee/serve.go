package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Agurato/marquee/internal/business"
	"github.com/Agurato/marquee/internal/infrastructure"
	"github.com/Agurato/marquee/internal/service/server"
)

var pollInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the viewer, the data file and a read-only catalog API",
	Long: `Starts a local preview server on LISTEN_ADDR. The data file is polled and the
catalog reloaded whenever the fetcher rewrites it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		dataFile, err := infrastructure.NewDataFile(cfg.OutputPath)
		if err != nil {
			return err
		}

		catalog := business.NewCatalog(nil)
		fw, err := business.NewFileWatcher(dataFile, catalog, pollInterval)
		if err != nil {
			return err
		}

		mainHandler, err := server.NewMainHandler(cfg.SiteTitle, dataFile.Path())
		if err != nil {
			return err
		}
		catalogHandler := server.NewCatalogHandler(catalog, business.NewFiltererWrapper(cfg.WatchRegion))

		gin.SetMode(gin.ReleaseMode)
		router, err := server.NewServer(mainHandler, catalogHandler)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return fw.Run(ctx) })
		g.Go(func() error {
			log.Info().Str("addr", cfg.ListenAddr).Msg("Serving")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().DurationVar(&pollInterval, "poll", time.Second, "Interval between two checks of the data file")
}
