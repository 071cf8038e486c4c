package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tmdb "github.com/cyruzin/golang-tmdb"

	"github.com/Agurato/marquee/internal/model"
)

const (
	detailsAppend = "credits,watch/providers"
	directorJob   = "Director"
)

// MetadataOptions configures a MetadataWrapper
type MetadataOptions struct {
	HTTPClient *http.Client
	Retrier    Retrier
	Region     string
	CastSize   int
}

// MetadataWrapper talks to TMDB through golang-tmdb
type MetadataWrapper struct {
	client   *tmdb.Client
	http     *http.Client
	retrier  Retrier
	region   string
	castSize int
}

// NewMetadataWrapper initializes a MetadataWrapper authenticated with a bearer token
func NewMetadataWrapper(token string, opts MetadataOptions) (*MetadataWrapper, error) {
	client, err := tmdb.InitV4(token)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client.SetClientConfig(*httpClient)

	return &MetadataWrapper{
		client:   client,
		http:     httpClient,
		retrier:  opts.Retrier,
		region:   strings.ToUpper(opts.Region),
		castSize: opts.CastSize,
	}, nil
}

// GetPosterLink returns the w342 poster URL for an image key
func (mw MetadataWrapper) GetPosterLink(key string) string {
	if key == "" {
		return ""
	}
	return tmdb.GetImageURL(key, tmdb.W342)
}

// GetLogoLink returns the original size URL of a provider logo
func (mw MetadataWrapper) GetLogoLink(key string) string {
	if key == "" {
		return ""
	}
	return tmdb.GetImageURL(key, tmdb.Original)
}

// clientFor returns a copy of the client whose requests end with ctx.
// golang-tmdb sends every request on a background context of its own.
func (mw MetadataWrapper) clientFor(ctx context.Context) *tmdb.Client {
	httpClient := *mw.http
	httpClient.Transport = &contextTransport{ctx: ctx, base: httpClient.Transport}
	client := *mw.client
	client.SetClientConfig(httpClient)
	return &client
}

// Discover fetches one page of the discovery endpoint for a media type
func (mw MetadataWrapper) Discover(ctx context.Context, mediaType model.MediaType, page int, query model.DiscoverQuery) (*model.DiscoverPage, error) {
	urlOptions := map[string]string{
		"sort_by":          "popularity.desc",
		"page":             strconv.Itoa(page),
		"vote_count.gte":   strconv.FormatInt(query.MinVotes, 10),
		"vote_average.gte": strconv.FormatFloat(query.MinRating, 'f', -1, 64),
		"include_adult":    "false",
	}
	urlOptions[mediaType.DateField()+".gte"] = query.Window.StartDate()
	urlOptions[mediaType.DateField()+".lte"] = query.Window.EndDate()

	var discover func(*tmdb.Client, map[string]string) (*model.DiscoverPage, error)
	switch mediaType {
	case model.Movie:
		discover = mw.discoverMovies
	case model.Show:
		discover = mw.discoverShows
	default:
		return nil, fmt.Errorf("unknown media type %q", mediaType)
	}

	client := mw.clientFor(ctx)
	var result *model.DiscoverPage
	err := mw.retrier.Do(ctx, fmt.Sprintf("discover %s page %d", mediaType, page), func() error {
		var err error
		result, err = discover(client, urlOptions)
		return err
	})
	if err != nil {
		return nil, mw.classify(err)
	}
	result.Page = page
	return result, nil
}

func (mw MetadataWrapper) discoverMovies(client *tmdb.Client, urlOptions map[string]string) (*model.DiscoverPage, error) {
	res, err := client.GetDiscoverMovie(urlOptions)
	if err != nil {
		return nil, err
	}
	page := &model.DiscoverPage{TotalPages: int(res.TotalPages)}
	for _, r := range res.Results {
		page.Items = append(page.Items, model.MediaItem{
			ID:          int64(r.ID),
			Type:        model.Movie,
			Title:       r.Title,
			Overview:    r.Overview,
			PosterPath:  r.PosterPath,
			PosterURL:   mw.GetPosterLink(r.PosterPath),
			ReleaseDate: r.ReleaseDate,
			Year:        yearOf(r.ReleaseDate),
			Rating:      roundRating(float64(r.VoteAverage)),
			VoteCount:   int64(r.VoteCount),
		})
	}
	return page, nil
}

func (mw MetadataWrapper) discoverShows(client *tmdb.Client, urlOptions map[string]string) (*model.DiscoverPage, error) {
	res, err := client.GetDiscoverTV(urlOptions)
	if err != nil {
		return nil, err
	}
	page := &model.DiscoverPage{TotalPages: int(res.TotalPages)}
	for _, r := range res.Results {
		page.Items = append(page.Items, model.MediaItem{
			ID:          int64(r.ID),
			Type:        model.Show,
			Title:       r.Name,
			Overview:    r.Overview,
			PosterPath:  r.PosterPath,
			PosterURL:   mw.GetPosterLink(r.PosterPath),
			ReleaseDate: r.FirstAirDate,
			Year:        yearOf(r.FirstAirDate),
			Rating:      roundRating(float64(r.VoteAverage)),
			VoteCount:   int64(r.VoteCount),
		})
	}
	return page, nil
}

// mediaDetails is what a details call adds to a discovered item
type mediaDetails struct {
	genres    []string
	director  string
	cast      []string
	providers []model.Provider
	tvStatus  *model.TVStatus
}

// UpdateDetails fills genres, credits, providers and show status of an item with a single request
func (mw MetadataWrapper) UpdateDetails(ctx context.Context, item *model.MediaItem) error {
	var getDetails func(*tmdb.Client, int, map[string]string) (mediaDetails, error)
	switch item.Type {
	case model.Movie:
		getDetails = mw.movieDetails
	case model.Show:
		getDetails = mw.showDetails
	default:
		return fmt.Errorf("unknown media type %q", item.Type)
	}

	client := mw.clientFor(ctx)
	urlOptions := map[string]string{"append_to_response": detailsAppend}
	var details mediaDetails
	err := mw.retrier.Do(ctx, "details "+item.Key().String(), func() error {
		var err error
		details, err = getDetails(client, int(item.ID), urlOptions)
		return err
	})
	if err != nil {
		return mw.classify(err)
	}

	item.Genres = details.genres
	item.Director = details.director
	item.Cast = details.cast
	item.Providers = details.providers
	item.TVStatus = details.tvStatus
	return nil
}

func (mw MetadataWrapper) movieDetails(client *tmdb.Client, id int, urlOptions map[string]string) (mediaDetails, error) {
	res, err := client.GetMovieDetails(id, urlOptions)
	if err != nil {
		return mediaDetails{}, err
	}

	var details mediaDetails
	for _, g := range res.Genres {
		details.genres = append(details.genres, g.Name)
	}
	if res.MovieCreditsAppend != nil && res.Credits.MovieCredits != nil {
		for _, c := range res.Credits.Crew {
			if c.Job == directorJob {
				details.director = c.Name
				break
			}
		}
		for _, c := range res.Credits.Cast {
			if len(details.cast) >= mw.castSize {
				break
			}
			details.cast = append(details.cast, c.Name)
		}
	}
	if res.MovieWatchProvidersAppend != nil && res.WatchProviders != nil {
		details.providers = mw.regionProviders(res.WatchProviders.MovieWatchProvidersResults)
	}
	return details, nil
}

// showDetails leaves the director empty, shows credit their directors per episode
func (mw MetadataWrapper) showDetails(client *tmdb.Client, id int, urlOptions map[string]string) (mediaDetails, error) {
	res, err := client.GetTVDetails(id, urlOptions)
	if err != nil {
		return mediaDetails{}, err
	}

	var details mediaDetails
	for _, g := range res.Genres {
		details.genres = append(details.genres, g.Name)
	}
	if res.TVCreditsAppend != nil && res.Credits.TVCredits != nil {
		for _, c := range res.Credits.Cast {
			if len(details.cast) >= mw.castSize {
				break
			}
			details.cast = append(details.cast, c.Name)
		}
	}
	if res.TVWatchProvidersAppend != nil && res.WatchProviders != nil && res.WatchProviders.TVWatchProvidersResults != nil {
		// Both result types share the same layout
		results := tmdb.MovieWatchProvidersResults(*res.WatchProviders.TVWatchProvidersResults)
		details.providers = mw.regionProviders(&results)
	}

	last, next := res.LastEpisodeToAir, res.NextEpisodeToAir
	details.tvStatus = &model.TVStatus{
		Status:       res.Status,
		InProduction: res.InProduction,
		LastEpisode:  toEpisode(last.SeasonNumber, last.EpisodeNumber, last.AirDate, last.Name),
		NextEpisode:  toEpisode(next.SeasonNumber, next.EpisodeNumber, next.AirDate, next.Name),
	}
	return details, nil
}

// regionProviders returns the flat rate providers of the configured region
func (mw MetadataWrapper) regionProviders(results *tmdb.MovieWatchProvidersResults) []model.Provider {
	if results == nil {
		return nil
	}
	region, ok := results.Results[mw.region]
	if !ok {
		return nil
	}
	var providers []model.Provider
	for _, p := range region.Flatrate {
		providers = append(providers, model.Provider{
			Name: p.ProviderName,
			Logo: mw.GetLogoLink(p.LogoPath),
		})
	}
	return providers
}

// classify makes a rejected credential visible to errors.Is even when golang-tmdb did not wrap the transport error
func (mw MetadataWrapper) classify(err error) error {
	if errors.Is(err, ErrUnauthorized) || mw.retrier.Fatal == nil || !mw.retrier.Fatal() {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnauthorized, err)
}

// toEpisode returns nil for the zero episode golang-tmdb decodes a missing one into, episodes are numbered from 1
func toEpisode(season, episode int, airDate, name string) *model.Episode {
	if episode == 0 {
		return nil
	}
	return &model.Episode{
		Season:  season,
		Episode: episode,
		AirDate: airDate,
		Name:    name,
	}
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// roundRating drops the float32 noise TMDB ratings carry through golang-tmdb
func roundRating(r float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(r, 'f', 3, 64), 64)
	return v
}
