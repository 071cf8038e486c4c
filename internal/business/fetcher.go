package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/marquee/internal/model"
)

// progressEvery is the number of detailed items between two progress logs
const progressEvery = 10

type MediaDiscoverer interface {
	Discover(ctx context.Context, mediaType model.MediaType, page int, query model.DiscoverQuery) (*model.DiscoverPage, error)
	UpdateDetails(ctx context.Context, item *model.MediaItem) error
}

type MediaStorer interface {
	Load() ([]model.MediaItem, error)
	Save(items []model.MediaItem) (changed bool, err error)
}

// FetcherOptions are the filters and limits of a run
type FetcherOptions struct {
	LookbackDays    int
	MinVotes        int64
	MinRating       float64
	MaxPagesPerType int
	ExcludedGenres  []string
}

// TypeReport counts what happened to one media type during a run
type TypeReport struct {
	Type         model.MediaType
	Pages        int
	SkippedPages int
	Discovered   int
	Rejected     int
	Duplicates   int
	SkippedItems int
	Excluded     int
	Fetched      int
}

// RunReport summarizes a run
type RunReport struct {
	Window   model.Window
	Types    []TypeReport
	Existing int
	Removed  int
	Total    int
	Changed  bool
	Duration time.Duration
}

// Fetched returns the number of items fetched for every type
func (r RunReport) Fetched() int {
	return lo.Reduce(r.Types, func(sum int, t TypeReport, _ int) int { return sum + t.Fetched }, 0)
}

// Fetcher runs the discovery, detail and merge pipeline and writes the result
type Fetcher struct {
	MediaDiscoverer
	MediaStorer

	options FetcherOptions
	now     func() time.Time
}

func NewFetcher(md MediaDiscoverer, ms MediaStorer, options FetcherOptions) *Fetcher {
	return &Fetcher{
		MediaDiscoverer: md,
		MediaStorer:     ms,
		options:         options,
		now:             time.Now,
	}
}

// Run fetches every media type, merges the result with the previous output and saves it.
// Pages and items failing after retries are skipped. A rejected credential aborts the run before anything is written.
func (f *Fetcher) Run(ctx context.Context) (*RunReport, error) {
	start := f.now()
	window := model.NewWindow(start, f.options.LookbackDays)
	query := model.DiscoverQuery{
		Window:    window,
		MinVotes:  f.options.MinVotes,
		MinRating: f.options.MinRating,
	}

	existing, err := f.MediaStorer.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load previous output: %w", err)
	}
	report := &RunReport{Window: window, Existing: len(existing)}
	log.Info().Str("from", window.StartDate()).Str("to", window.EndDate()).Int("existing", len(existing)).Msg("Starting fetch")

	var (
		fetched  []model.MediaItem
		rejected = make(map[model.MediaKey]struct{})
	)
	for _, mediaType := range []model.MediaType{model.Movie, model.Show} {
		items, typeReport, err := f.fetchType(ctx, mediaType, query, rejected)
		report.Types = append(report.Types, typeReport)
		if err != nil {
			return report, fmt.Errorf("could not fetch %s: %w", mediaType, err)
		}
		fetched = append(fetched, items...)
	}

	merged, removed := Merge(existing, fetched, rejected, f.accepts(query))
	report.Removed = removed
	report.Total = len(merged)

	report.Changed, err = f.MediaStorer.Save(merged)
	if err != nil {
		return report, fmt.Errorf("could not save output: %w", err)
	}
	report.Duration = f.now().Sub(start)
	return report, nil
}

// fetchType returns the detailed items of one media type. Keys discovered but refused are added to rejected.
func (f *Fetcher) fetchType(ctx context.Context, mediaType model.MediaType, query model.DiscoverQuery, rejected map[model.MediaKey]struct{}) ([]model.MediaItem, TypeReport, error) {
	report := TypeReport{Type: mediaType}

	candidates, err := f.discover(ctx, mediaType, query, rejected, &report)
	if err != nil {
		return nil, report, err
	}

	items := make([]model.MediaItem, 0, len(candidates))
	for i := range candidates {
		if i%progressEvery == 0 {
			log.Info().Str("type", string(mediaType)).Int("done", i).Int("total", len(candidates)).Msg("Fetching details")
		}
		item := candidates[i]
		if err := f.MediaDiscoverer.UpdateDetails(ctx, &item); err != nil {
			if isFatal(ctx, err) {
				return nil, report, err
			}
			log.Warn().Err(err).Str("item", item.Key().String()).Str("title", item.Title).Msg("Skipping item")
			report.SkippedItems++
			continue
		}
		if genre, excluded := f.excludedGenre(item); excluded {
			log.Debug().Str("item", item.Key().String()).Str("genre", genre).Msg("Excluding item")
			report.Excluded++
			rejected[item.Key()] = struct{}{}
			continue
		}
		item.Normalize()
		items = append(items, item)
	}
	report.Fetched = len(items)

	log.Info().
		Str("type", string(mediaType)).
		Int("pages", report.Pages).
		Int("skippedPages", report.SkippedPages).
		Int("fetched", report.Fetched).
		Int("skippedItems", report.SkippedItems).
		Int("excluded", report.Excluded).
		Msg("Fetched media type")
	return items, report, nil
}

// discover walks the discovery pages and returns the accepted items, each (type, id) once
func (f *Fetcher) discover(ctx context.Context, mediaType model.MediaType, query model.DiscoverQuery, rejected map[model.MediaKey]struct{}, report *TypeReport) ([]model.MediaItem, error) {
	var (
		candidates []model.MediaItem
		seen       = make(map[int64]struct{})
		totalPages = 1
	)
	for page := 1; page <= min(totalPages, f.options.MaxPagesPerType); page++ {
		res, err := f.MediaDiscoverer.Discover(ctx, mediaType, page, query)
		if err != nil {
			if isFatal(ctx, err) {
				return nil, err
			}
			log.Warn().Err(err).Str("type", string(mediaType)).Int("page", page).Msg("Skipping page")
			report.SkippedPages++
			continue
		}
		report.Pages++
		totalPages = res.TotalPages

		for _, item := range res.Items {
			report.Discovered++
			if !query.Accepts(item) {
				report.Rejected++
				rejected[item.Key()] = struct{}{}
				continue
			}
			if _, ok := seen[item.ID]; ok {
				report.Duplicates++
				continue
			}
			seen[item.ID] = struct{}{}
			candidates = append(candidates, item)
		}
	}
	return candidates, nil
}

// accepts is the rule every item of the output must satisfy, including items kept from a previous run
func (f *Fetcher) accepts(query model.DiscoverQuery) func(model.MediaItem) bool {
	return func(item model.MediaItem) bool {
		_, excluded := f.excludedGenre(item)
		return query.Accepts(item) && !excluded
	}
}

func (f *Fetcher) excludedGenre(item model.MediaItem) (string, bool) {
	return lo.Find(f.options.ExcludedGenres, item.HasGenre)
}

// isFatal reports whether err must stop the run instead of skipping the failing request
func isFatal(ctx context.Context, err error) bool {
	return errors.Is(err, model.ErrUnauthorized) || ctx.Err() != nil
}
