package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Agurato/marquee/internal/business"
	"github.com/Agurato/marquee/internal/config"
	"github.com/Agurato/marquee/internal/infrastructure"
)

const maxBackoff = time.Minute

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch movies and shows from TMDB and update the data file",
	Long: `Walks the discovery pages of both media types, fetches the details of every
accepted item and merges them with the previous data file. The file is only
rewritten when its content changes. A rejected TMDB token stops the run before
anything is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateFetch(); err != nil {
			return err
		}
		fetcher, tr, err := newFetcher(cfg)
		if err != nil {
			return err
		}

		report, err := fetcher.Run(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().
			Int("fetched", report.Fetched()).
			Int("existing", report.Existing).
			Int("removed", report.Removed).
			Int("total", report.Total).
			Bool("changed", report.Changed).
			Int64("requests", tr.Requests()).
			Dur("duration", report.Duration).
			Msg("Fetch done")
		return nil
	},
}

func newFetcher(cfg *config.Config) (*business.Fetcher, *infrastructure.Transport, error) {
	tr := infrastructure.NewTransport(cfg.TMDBToken, cfg.RequestsPerWindow, cfg.RateWindow)
	metadata, err := infrastructure.NewMetadataWrapper(cfg.TMDBToken, infrastructure.MetadataOptions{
		HTTPClient: &http.Client{Transport: tr, Timeout: 30 * time.Second},
		Retrier: infrastructure.Retrier{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			MaxBackoff: maxBackoff,
			Fatal:      tr.Unauthorized,
		},
		Region:   cfg.WatchRegion,
		CastSize: cfg.CastSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create TMDB client: %w", err)
	}
	dataFile, err := infrastructure.NewDataFile(cfg.OutputPath)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("region", cfg.RegionName()).Str("output", dataFile.Path()).Msg("Fetch configured")

	return business.NewFetcher(metadata, dataFile, business.FetcherOptions{
		LookbackDays:    cfg.LookbackDays,
		MinVotes:        cfg.MinVotes,
		MinRating:       cfg.MinRating,
		MaxPagesPerType: cfg.MaxPagesPerType,
		ExcludedGenres:  cfg.ExcludedGenres,
	}), tr, nil
}
