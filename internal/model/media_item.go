package model

import (
	"fmt"
	"strings"
	"time"
)

// MediaType is the kind of content a MediaItem describes
type MediaType string

const (
	Movie MediaType = "movie"
	Show  MediaType = "tv"
)

// DateLayout is the layout TMDB uses for release and air dates
const DateLayout = "2006-01-02"

// MediaItem is one movie or show record of the output file
type MediaItem struct {
	ID          int64      `json:"id"`
	Type        MediaType  `json:"type"`
	Title       string     `json:"title"`
	Overview    string     `json:"overview"`
	PosterPath  string     `json:"poster_path,omitempty"`
	PosterURL   string     `json:"poster_url,omitempty"`
	ReleaseDate string     `json:"release_date,omitempty"`
	Year        int        `json:"year,omitempty"`
	Rating      float64    `json:"vote_average"`
	VoteCount   int64      `json:"vote_count"`
	Director    string     `json:"director,omitempty"`
	Cast        []string   `json:"cast"`
	Genres      []string   `json:"genres"`
	Providers   []Provider `json:"providers"`
	TVStatus    *TVStatus  `json:"tv_status,omitempty"`
}

// Provider is a streaming service an item is available on
type Provider struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// TVStatus holds the airing state of a show
type TVStatus struct {
	Status       string   `json:"status"`
	InProduction bool     `json:"in_production"`
	LastEpisode  *Episode `json:"last_episode,omitempty"`
	NextEpisode  *Episode `json:"next_episode,omitempty"`
}

type Episode struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	AirDate string `json:"air_date,omitempty"`
	Name    string `json:"name,omitempty"`
}

// MediaKey identifies an item across runs
type MediaKey struct {
	Type MediaType
	ID   int64
}

func (k MediaKey) String() string {
	return fmt.Sprintf("%s/%d", k.Type, k.ID)
}

// Key returns the (type, id) pair of the item
func (m MediaItem) Key() MediaKey {
	return MediaKey{Type: m.Type, ID: m.ID}
}

// Released parses the release date. ok is false when the date is missing or malformed.
func (m MediaItem) Released() (t time.Time, ok bool) {
	if m.ReleaseDate == "" {
		return t, false
	}
	t, err := time.Parse(DateLayout, m.ReleaseDate)
	return t, err == nil
}

// Credits returns every person name attached to the item, director first
func (m MediaItem) Credits() []string {
	credits := make([]string, 0, len(m.Cast)+1)
	if m.Director != "" {
		credits = append(credits, m.Director)
	}
	return append(credits, m.Cast...)
}

// HasGenre reports whether the item carries the genre, ignoring case
func (m MediaItem) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// ParseMediaType accepts "movie", "tv" and the "show" alias
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return Movie, nil
	case "tv", "show", "shows":
		return Show, nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

// DateField is the discovery query field filtering on the item release date
func (t MediaType) DateField() string {
	if t == Show {
		return "first_air_date"
	}
	return "primary_release_date"
}

// Normalize replaces nil slices with empty ones so the serialized form does not depend on how the item was built
func (m *MediaItem) Normalize() {
	if m.Cast == nil {
		m.Cast = []string{}
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	if m.Providers == nil {
		m.Providers = []Provider{}
	}
}
