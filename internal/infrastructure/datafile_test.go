package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/marquee/internal/model"
)

func TestDataFile(t *testing.T) {
	dir := t.TempDir()
	df, err := NewDataFile(filepath.Join(dir, "site", "data.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "site"), df.Dir())

	t.Run("missing file is empty", func(t *testing.T) {
		items, err := df.Load()
		assert.NoError(t, err)
		assert.Empty(t, items)
	})

	items := []model.MediaItem{
		{ID: 1, Type: model.Movie, Title: "Anora", ReleaseDate: "2026-03-01", Year: 2026, Rating: 7.3, Director: "Sean Baker"},
		{ID: 1, Type: model.Show, Title: "Shōgun & co", ReleaseDate: "2026-02-27", TVStatus: &model.TVStatus{Status: "Ended"}},
	}

	t.Run("save and load", func(t *testing.T) {
		changed, err := df.Save(items)
		require.NoError(t, err)
		assert.True(t, changed)

		loaded, err := df.Load()
		require.NoError(t, err)
		assert.Equal(t, items, loaded)

		data, err := os.ReadFile(df.Path())
		require.NoError(t, err)
		assert.Contains(t, string(data), "Shōgun & co")
		assert.Contains(t, string(data), `"cast": []`)
	})

	t.Run("unchanged content is not rewritten", func(t *testing.T) {
		info, err := os.Stat(df.Path())
		require.NoError(t, err)
		old := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(df.Path(), old, old))

		changed, err := df.Save(items)
		require.NoError(t, err)
		assert.False(t, changed)

		after, err := os.Stat(df.Path())
		require.NoError(t, err)
		assert.Equal(t, info.Size(), after.Size())
		assert.Equal(t, old.Unix(), after.ModTime().Unix())
	})

	t.Run("no temporary files left", func(t *testing.T) {
		entries, err := os.ReadDir(df.Dir())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "data.json", entries[0].Name())
	})

	t.Run("malformed file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(df.Path(), []byte(`{"movies": [`), 0644))
		_, err := df.Load()
		assert.Error(t, err)
	})

	t.Run("empty list", func(t *testing.T) {
		changed, err := df.Save(nil)
		require.NoError(t, err)
		assert.True(t, changed)
		data, err := os.ReadFile(df.Path())
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(data))
	})
}
