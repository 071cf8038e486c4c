package business

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Agurato/marquee/internal/model"
)

func TestFiltererFacets(t *testing.T) {
	f := NewFiltererWrapper("US")
	items := []model.MediaItem{
		{ID: 1, Type: model.Movie, Year: 2026, Genres: []string{"Drama", "Comedy"}, Providers: []model.Provider{{Name: "Hulu"}}},
		{ID: 2, Type: model.Movie, Year: 2025, Genres: []string{"drama"}, Providers: []model.Provider{{Name: "Netflix"}, {Name: "hulu"}}},
		{ID: 1, Type: model.Show, Year: 2026, Genres: []string{"Sci-Fi & Fantasy"}},
		{ID: 3, Type: model.Movie},
	}

	facets := f.Facets(items)
	assert.Equal(t, []TypeFacet{
		{Value: model.Movie, Label: "Movies", Count: 3},
		{Value: model.Show, Label: "Shows", Count: 1},
	}, facets.Types)
	assert.Equal(t, []string{"Comedy", "Drama", "Sci-Fi & Fantasy"}, facets.Genres)
	assert.Equal(t, []int{2026, 2025}, facets.Years)
	assert.Equal(t, []string{"Hulu", "Netflix"}, facets.Providers)
	assert.Equal(t, "United States", facets.Region)
}

func TestFiltererEmpty(t *testing.T) {
	facets := NewFiltererWrapper("FR").Facets(nil)
	assert.Empty(t, facets.Types)
	assert.NotNil(t, facets.Genres)
	assert.NotNil(t, facets.Years)
	assert.Equal(t, "France", facets.Region)
}

func TestFiltererCountryName(t *testing.T) {
	f := NewFiltererWrapper("US")
	assert.Equal(t, "Germany", f.GetCountryName("DE"))
	assert.Equal(t, "ZZ", f.GetCountryName("ZZ"))
}
