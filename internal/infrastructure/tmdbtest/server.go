// Package tmdbtest runs an in-memory stand-in for the TMDB endpoints the fetcher uses.
package tmdbtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Title is a movie or show known by the fake upstream
type Title struct {
	ID           int64
	Title        string
	Overview     string
	PosterPath   string
	Date         string
	VoteAverage  float64
	VoteCount    int64
	Genres       []string
	Director     string
	Cast         []string
	Providers    map[string][]string // region -> provider names
	Status       string
	InProduction bool
}

// Server is a fake TMDB API. The zero value is not usable, use New.
type Server struct {
	*httptest.Server
	Token    string
	PageSize int

	mu       sync.Mutex
	titles   map[string][]Title
	failures map[string][]int
	hits     map[string]int
	auth     []string
}

// New starts a fake upstream accepting token
func New(token string) *Server {
	s := &Server{
		Token:    token,
		PageSize: 2,
		titles:   map[string][]Title{},
		failures: map[string][]int{},
		hits:     map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// ParsedURL returns the parsed base URL of the server
func (s *Server) ParsedURL() *url.URL {
	u, _ := url.Parse(s.Server.URL)
	return u
}

// SetTitles replaces the catalogue of a media type ("movie" or "tv")
func (s *Server) SetTitles(mediaType string, titles ...Title) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[mediaType] = titles
}

// Fail queues error responses for path; each request to path consumes one.
// A status of 0 answers 200 with a truncated JSON body.
func (s *Server) Fail(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], statuses...)
}

// Hits returns how many requests reached path
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns how many requests reached the server
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// AuthHeaders returns the Authorization headers received so far
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	path := r.URL.Path
	s.hits[path]++
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	var failure *int
	if queue := s.failures[path]; len(queue) > 0 {
		status := queue[0]
		s.failures[path] = queue[1:]
		failure = &status
	}
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"status_code":    7,
			"status_message": "Invalid API key: You must be granted a valid key.",
			"success":        false,
		})
		return
	}
	if failure != nil {
		switch *failure {
		case 0:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"page": 1, "results": [`))
		case http.StatusTooManyRequests:
			w.Header().Set("Retry-After", "0")
			writeJSON(w, *failure, map[string]any{"status_code": 25, "status_message": "Your request count is over the allowed limit."})
		default:
			writeJSON(w, *failure, map[string]any{"status_code": 11, "status_message": "Internal error."})
		}
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "3" && parts[1] == "discover":
		s.discover(w, r, parts[2])
	case len(parts) == 3 && parts[0] == "3" && (parts[1] == "movie" || parts[1] == "tv"):
		s.details(w, parts[1], parts[2])
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"status_code": 34, "status_message": "The resource you requested could not be found."})
	}
}

// discover pages through the catalogue without applying the query filters, like an upstream that is
// looser than the caller expects
func (s *Server) discover(w http.ResponseWriter, r *http.Request, mediaType string) {
	s.mu.Lock()
	titles := s.titles[mediaType]
	s.mu.Unlock()

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	totalPages := (len(titles) + s.PageSize - 1) / s.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	results := []map[string]any{}
	for i := (page - 1) * s.PageSize; i < page*s.PageSize && i < len(titles); i++ {
		t := titles[i]
		result := map[string]any{
			"id":           t.ID,
			"overview":     t.Overview,
			"poster_path":  t.PosterPath,
			"vote_average": t.VoteAverage,
			"vote_count":   t.VoteCount,
			"popularity":   float64(100 - i),
		}
		if mediaType == "movie" {
			result["title"] = t.Title
			result["release_date"] = t.Date
		} else {
			result["name"] = t.Title
			result["first_air_date"] = t.Date
		}
		results = append(results, result)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"page":          page,
		"results":       results,
		"total_pages":   totalPages,
		"total_results": len(titles),
	})
}

func (s *Server) details(w http.ResponseWriter, mediaType, rawID string) {
	id, _ := strconv.ParseInt(rawID, 10, 64)
	s.mu.Lock()
	var found *Title
	for _, t := range s.titles[mediaType] {
		if t.ID == id {
			t := t
			found = &t
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"status_code": 34, "status_message": "The resource you requested could not be found."})
		return
	}

	genres := []map[string]any{}
	for i, g := range found.Genres {
		genres = append(genres, map[string]any{"id": i + 1, "name": g})
	}
	cast := []map[string]any{}
	for i, name := range found.Cast {
		cast = append(cast, map[string]any{"name": name, "order": i, "character": fmt.Sprintf("Role %d", i)})
	}
	crew := []map[string]any{{"name": "Someone Else", "job": "Producer"}}
	if found.Director != "" {
		crew = append(crew, map[string]any{"name": found.Director, "job": "Director"})
	}
	regions := map[string]any{}
	for region, names := range found.Providers {
		flatrate := []map[string]any{}
		for i, name := range names {
			flatrate = append(flatrate, map[string]any{
				"provider_name": name,
				"logo_path":     fmt.Sprintf("/logo%d.jpg", i),
			})
		}
		regions[region] = map[string]any{"flatrate": flatrate}
	}

	body := map[string]any{
		"id":              found.ID,
		"genres":          genres,
		"status":          found.Status,
		"in_production":   found.InProduction,
		"credits":         map[string]any{"cast": cast, "crew": crew},
		"watch/providers": map[string]any{"results": regions},
	}
	if mediaType == "tv" {
		body["last_episode_to_air"] = map[string]any{"season_number": 1, "episode_number": 8, "air_date": found.Date, "name": "Finale"}
		body["next_episode_to_air"] = nil
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
