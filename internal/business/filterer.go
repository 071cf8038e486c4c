package business

import (
	"cmp"
	"slices"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Agurato/marquee/internal/model"
)

var typeLabels = map[model.MediaType]string{
	model.Movie: "movies",
	model.Show:  "shows",
}

// Facets holds the different filters that can be applied to the catalog
type Facets struct {
	Types     []TypeFacet `json:"types"`
	Genres    []string    `json:"genres"`
	Years     []int       `json:"years"`
	Providers []string    `json:"providers"`
	Region    string      `json:"region"`
}

type TypeFacet struct {
	Value model.MediaType `json:"value"`
	Label string          `json:"label"`
	Count int             `json:"count"`
}

type FiltererWrapper struct {
	region     string
	regionName string
}

// NewFiltererWrapper returns a Filterer for providers of region, an ISO 3166-1 alpha-2 code
func NewFiltererWrapper(region string) *FiltererWrapper {
	f := &FiltererWrapper{region: region}
	f.regionName = f.GetCountryName(region)
	return f
}

// GetCountryName returns the common name of a country code, or the code when it is unknown
func (f *FiltererWrapper) GetCountryName(code string) string {
	country, err := gountries.New().FindCountryByAlpha(code)
	if err != nil {
		return code
	}
	return country.Name.Common
}

// Facets collects the types, genres, release years and providers present in items.
// Genres and providers differing only by case are listed once, with their first spelling.
func (f *FiltererWrapper) Facets(items []model.MediaItem) Facets {
	fold := cases.Fold()

	counts := map[model.MediaType]int{}
	years := map[int]struct{}{}
	genres := newFoldedSet(fold)
	providers := newFoldedSet(fold)
	for _, item := range items {
		counts[item.Type]++
		if item.Year > 0 {
			years[item.Year] = struct{}{}
		}
		for _, genre := range item.Genres {
			genres.add(genre)
		}
		for _, provider := range item.Providers {
			providers.add(provider.Name)
		}
	}

	facets := Facets{
		Types:     []TypeFacet{},
		Genres:    genres.sorted(),
		Years:     make([]int, 0, len(years)),
		Providers: providers.sorted(),
		Region:    f.regionName,
	}
	for _, mediaType := range []model.MediaType{model.Movie, model.Show} {
		if counts[mediaType] == 0 {
			continue
		}
		facets.Types = append(facets.Types, TypeFacet{
			Value: mediaType,
			Label: TypeLabel(mediaType),
			Count: counts[mediaType],
		})
	}
	for year := range years {
		facets.Years = append(facets.Years, year)
	}
	slices.SortFunc(facets.Years, func(a, b int) int { return cmp.Compare(b, a) })
	return facets
}

type foldedSet struct {
	fold   cases.Caser
	seen   map[string]struct{}
	values []string
}

func newFoldedSet(fold cases.Caser) *foldedSet {
	return &foldedSet{fold: fold, seen: map[string]struct{}{}, values: []string{}}
}

func (s *foldedSet) add(value string) {
	key := s.fold.String(value)
	if _, ok := s.seen[key]; ok || value == "" {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, value)
}

func (s *foldedSet) sorted() []string {
	slices.SortFunc(s.values, func(a, b string) int {
		return cmp.Compare(s.fold.String(a), s.fold.String(b))
	})
	return s.values
}

// TypeLabel returns the display name of a media type
func TypeLabel(mediaType model.MediaType) string {
	return cases.Title(language.English).String(typeLabels[mediaType])
}
