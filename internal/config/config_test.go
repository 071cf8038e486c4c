package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvTMDBToken, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.MinVotes)
	assert.Equal(t, 6.0, cfg.MinRating)
	assert.Equal(t, 365, cfg.LookbackDays)
	assert.Equal(t, 500, cfg.MaxPagesPerType)
	assert.Equal(t, 40, cfg.RequestsPerWindow)
	assert.Equal(t, 10*time.Second, cfg.RateWindow)
	assert.Equal(t, "US", cfg.WatchRegion)
	assert.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.ValidateFetch(), ErrMissingToken)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marquee.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_votes: 50
min_rating: 7.5
lookback_days: 30
watch_region: fr
rate_window: 5s
excluded_genres: [Horror]
`), 0644))

	t.Setenv(EnvTMDBToken, " token ")
	t.Setenv(EnvMinVotes, "100")
	t.Setenv(EnvMaxPagesPerType, "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TMDBToken)
	assert.Equal(t, int64(100), cfg.MinVotes)
	assert.Equal(t, 7.5, cfg.MinRating)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 2, cfg.MaxPagesPerType)
	assert.Equal(t, "FR", cfg.WatchRegion)
	assert.Equal(t, 5*time.Second, cfg.RateWindow)
	assert.Equal(t, []string{"Horror"}, cfg.ExcludedGenres)
	assert.NoError(t, cfg.ValidateFetch())
	assert.Equal(t, "France", cfg.RegionName())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 365, cfg.LookbackDays)
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv(EnvMinRating, "high")
	_, err := Load("")
	assert.Error(t, err)
}

func TestExcludedGenresEnv(t *testing.T) {
	t.Setenv(EnvExcludedGenres, "Horror, Western ,")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"Horror", "Western"}, cfg.ExcludedGenres)

	t.Setenv(EnvExcludedGenres, "")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.ExcludedGenres)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"rating":   func(c *Config) { c.MinRating = 11 },
		"lookback": func(c *Config) { c.LookbackDays = 0 },
		"pages":    func(c *Config) { c.MaxPagesPerType = 0 },
		"region":   func(c *Config) { c.WatchRegion = "XX" },
		"output":   func(c *Config) { c.OutputPath = "" },
		"rate":     func(c *Config) { c.RequestsPerWindow = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
