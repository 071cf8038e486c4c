package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/marquee/internal/infrastructure/tmdbtest"
	"github.com/Agurato/marquee/internal/model"
)

func newTestMetadata(t *testing.T, srv *tmdbtest.Server, token string) (*MetadataWrapper, *Transport) {
	t.Helper()
	tr := NewTransport(token, 1000, time.Second)
	tr.Endpoint = srv.ParsedURL()
	mw, err := NewMetadataWrapper(token, MetadataOptions{
		HTTPClient: &http.Client{Transport: tr},
		Retrier:    Retrier{MaxRetries: 2, Backoff: time.Millisecond, Fatal: tr.Unauthorized},
		Region:     "us",
		CastSize:   2,
	})
	require.NoError(t, err)
	return mw, tr
}

var testFilter = model.DiscoverQuery{
	Window:    model.NewWindow(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), 365),
	MinVotes:  1,
	MinRating: 6,
}

func testTitles() []tmdbtest.Title {
	return []tmdbtest.Title{
		{
			ID: 1, Title: "Anora", Overview: "A stripper marries.", PosterPath: "/anora.jpg", Date: "2026-03-01",
			VoteAverage: 7.3, VoteCount: 1200, Genres: []string{"Drama", "Comedy"}, Director: "Sean Baker",
			Cast:      []string{"Mikey Madison", "Mark Eydelshteyn", "Yura Borisov"},
			Providers: map[string][]string{"US": {"Hulu"}, "FR": {"Canal+"}},
		},
		{ID: 2, Title: "Conclave", Date: "2026-02-10", VoteAverage: 7.1, VoteCount: 900},
		{ID: 3, Title: "Flow", Date: "2026-01-05", VoteAverage: 8.2, VoteCount: 400},
	}
}

func TestMetadataDiscover(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie", testTitles()...)
	srv.SetTitles("tv", tmdbtest.Title{ID: 10, Title: "Shōgun", Date: "2026-02-27", VoteAverage: 8.6, VoteCount: 800})
	mw, _ := newTestMetadata(t, srv, "token")

	page, err := mw.Discover(context.Background(), model.Movie, 1, testFilter)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)

	anora := page.Items[0]
	assert.Equal(t, int64(1), anora.ID)
	assert.Equal(t, model.Movie, anora.Type)
	assert.Equal(t, "Anora", anora.Title)
	assert.Equal(t, "2026-03-01", anora.ReleaseDate)
	assert.Equal(t, 2026, anora.Year)
	assert.Equal(t, 7.3, anora.Rating)
	assert.Equal(t, int64(1200), anora.VoteCount)
	assert.Equal(t, tmdb.GetImageURL("/anora.jpg", tmdb.W342), anora.PosterURL)
	assert.Empty(t, page.Items[1].PosterURL)

	shows, err := mw.Discover(context.Background(), model.Show, 1, testFilter)
	require.NoError(t, err)
	require.Len(t, shows.Items, 1)
	assert.Equal(t, model.Show, shows.Items[0].Type)
	assert.Equal(t, "Shōgun", shows.Items[0].Title)
	assert.Equal(t, "2026-02-27", shows.Items[0].ReleaseDate)

	for _, header := range srv.AuthHeaders() {
		assert.Equal(t, "Bearer token", header)
	}
}

func TestMetadataDiscoverRetries(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie", testTitles()...)
	mw, _ := newTestMetadata(t, srv, "token")

	t.Run("rate limited then malformed", func(t *testing.T) {
		srv.Fail("/3/discover/movie", http.StatusTooManyRequests, 0)
		page, err := mw.Discover(context.Background(), model.Movie, 2, testFilter)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, 3, srv.Hits("/3/discover/movie"))
	})

	t.Run("exhausted", func(t *testing.T) {
		srv.Fail("/3/discover/movie", http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)
		_, err := mw.Discover(context.Background(), model.Movie, 1, testFilter)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestMetadataUnauthorized(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie", testTitles()...)
	mw, tr := newTestMetadata(t, srv, "expired")

	_, err := mw.Discover(context.Background(), model.Movie, 1, testFilter)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, tr.Unauthorized())
	assert.Equal(t, 1, srv.TotalHits())

	item := model.MediaItem{ID: 1, Type: model.Movie}
	err = mw.UpdateDetails(context.Background(), &item)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMetadataUpdateDetails(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie", testTitles()...)
	srv.SetTitles("tv", tmdbtest.Title{
		ID: 10, Title: "Shōgun", Date: "2026-02-27", Genres: []string{"Drama"}, Status: "Returning Series",
		InProduction: true, Cast: []string{"Hiroyuki Sanada"}, Director: "Nobody",
	})
	mw, _ := newTestMetadata(t, srv, "token")

	movie := model.MediaItem{ID: 1, Type: model.Movie, Title: "Anora"}
	require.NoError(t, mw.UpdateDetails(context.Background(), &movie))
	assert.Equal(t, []string{"Drama", "Comedy"}, movie.Genres)
	assert.Equal(t, "Sean Baker", movie.Director)
	assert.Equal(t, []string{"Mikey Madison", "Mark Eydelshteyn"}, movie.Cast)
	assert.Equal(t, []model.Provider{{Name: "Hulu", Logo: tmdb.GetImageURL("/logo0.jpg", tmdb.Original)}}, movie.Providers)
	assert.Nil(t, movie.TVStatus)
	assert.Equal(t, 1, srv.Hits("/3/movie/1"))

	show := model.MediaItem{ID: 10, Type: model.Show}
	require.NoError(t, mw.UpdateDetails(context.Background(), &show))
	assert.Empty(t, show.Director)
	assert.Empty(t, show.Providers)
	assert.Equal(t, []string{"Hiroyuki Sanada"}, show.Cast)
	require.NotNil(t, show.TVStatus)
	assert.Equal(t, "Returning Series", show.TVStatus.Status)
	assert.True(t, show.TVStatus.InProduction)
	assert.Equal(t, &model.Episode{Season: 1, Episode: 8, AirDate: "2026-02-27", Name: "Finale"}, show.TVStatus.LastEpisode)
	assert.Nil(t, show.TVStatus.NextEpisode)
}

func TestMetadataUpdateDetailsFailures(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie", testTitles()...)
	mw, _ := newTestMetadata(t, srv, "token")

	t.Run("not found is not retried", func(t *testing.T) {
		item := model.MediaItem{ID: 404, Type: model.Movie}
		err := mw.UpdateDetails(context.Background(), &item)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
		assert.Equal(t, 1, srv.Hits("/3/movie/404"))
	})

	t.Run("malformed is retried", func(t *testing.T) {
		srv.Fail("/3/movie/2", 0, http.StatusInternalServerError)
		item := model.MediaItem{ID: 2, Type: model.Movie}
		require.NoError(t, mw.UpdateDetails(context.Background(), &item))
		assert.Equal(t, 3, srv.Hits("/3/movie/2"))
	})
}

func TestMetadataFollowsRunContext(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie", testTitles()...)
	tr := NewTransport("token", 1, time.Hour)
	tr.Endpoint = srv.ParsedURL()
	mw, err := NewMetadataWrapper("token", MetadataOptions{
		HTTPClient: &http.Client{Transport: tr},
		Retrier:    Retrier{MaxRetries: 2, Backoff: time.Millisecond, Fatal: tr.Unauthorized},
	})
	require.NoError(t, err)

	_, err = mw.Discover(context.Background(), model.Movie, 1, testFilter)
	require.NoError(t, err)

	t.Run("discover waiting for its turn", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)
		start := time.Now()
		_, err := mw.Discover(ctx, model.Movie, 2, testFilter)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("details already canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		item := model.MediaItem{ID: 1, Type: model.Movie}
		err := mw.UpdateDetails(ctx, &item)
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.Equal(t, 1, srv.TotalHits())
}
