package business

import (
	"cmp"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/samber/lo"

	"github.com/Agurato/marquee/internal/model"
)

// Catalog holds the items of the data file in source order, and the order they are displayed in.
// Shuffling only changes the display order, Restore goes back to the source order.
type Catalog struct {
	mu    sync.RWMutex
	items []model.MediaItem
	order []int
}

func NewCatalog(items []model.MediaItem) *Catalog {
	c := &Catalog{}
	c.Replace(items)
	return c
}

// Replace swaps the items of the catalog, the display order is restored
func (c *Catalog) Replace(items []model.MediaItem) {
	items = slices.Clone(items)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.order = nil
}

// Snapshot returns an independent copy of the catalog, with the same display order
func (c *Catalog) Snapshot() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Catalog{
		items: c.items,
		order: slices.Clone(c.order),
	}
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Source returns the items in the order of the data file
func (c *Catalog) Source() []model.MediaItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Items returns the items in display order
func (c *Catalog) Items() []model.MediaItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayed()
}

// Shuffled reports whether the display order differs from the source order
func (c *Catalog) Shuffled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order != nil
}

// Shuffle randomizes the display order. The same seed always gives the same order.
func (c *Catalog) Shuffle(seed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order := lo.Range(len(c.items))
	rand.New(rand.NewSource(seed)).Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	c.order = order
}

// Restore goes back to the source order
func (c *Catalog) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
}

// Search returns the displayed items whose title, cast or director contain query, ignoring case.
// An empty query matches every item.
func (c *Catalog) Search(query string) []model.MediaItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.displayed()
	}
	return lo.Filter(c.displayed(), func(item model.MediaItem, _ int) bool {
		return Matches(item, query)
	})
}

// Matches reports whether the lowercase query is part of the title or of a credited name of item
func Matches(item model.MediaItem, query string) bool {
	if strings.Contains(strings.ToLower(item.Title), query) {
		return true
	}
	return lo.ContainsBy(item.Credits(), func(name string) bool {
		return strings.Contains(strings.ToLower(name), query)
	})
}

// Suggest returns up to n titles or names close to query, closest first.
// Only candidates within a third of the query length in edit distance are returned.
func (c *Catalog) Suggest(query string, n int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || n <= 0 {
		return nil
	}
	limit := max(1, (utf8.RuneCountInString(query)+1)/3)

	c.mu.RLock()
	candidates := make([]string, 0, len(c.items)*2)
	for _, item := range c.items {
		candidates = append(candidates, item.Title)
		candidates = append(candidates, item.Credits()...)
	}
	c.mu.RUnlock()

	type suggestion struct {
		name     string
		distance int
	}
	var suggestions []suggestion
	for _, name := range lo.Uniq(candidates) {
		distance := levenshtein.ComputeDistance(query, strings.ToLower(name))
		if distance <= limit {
			suggestions = append(suggestions, suggestion{name: name, distance: distance})
		}
	}
	slices.SortFunc(suggestions, func(a, b suggestion) int {
		if d := cmp.Compare(a.distance, b.distance); d != 0 {
			return d
		}
		return cmp.Compare(a.name, b.name)
	})
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return lo.Map(suggestions, func(s suggestion, _ int) string { return s.name })
}

func (c *Catalog) displayed() []model.MediaItem {
	if c.order == nil {
		return slices.Clone(c.items)
	}
	return lo.Map(c.order, func(i int, _ int) model.MediaItem { return c.items[i] })
}

// FilterType keeps the items of a media type. An empty type keeps everything.
func FilterType(items []model.MediaItem, mediaType model.MediaType) []model.MediaItem {
	if mediaType == "" {
		return items
	}
	return lo.Filter(items, func(item model.MediaItem, _ int) bool {
		return item.Type == mediaType
	})
}

// FilterGenre keeps the items carrying genre. An empty genre keeps everything.
func FilterGenre(items []model.MediaItem, genre string) []model.MediaItem {
	if genre == "" {
		return items
	}
	return lo.Filter(items, func(item model.MediaItem, _ int) bool {
		return item.HasGenre(genre)
	})
}

// Query is a listing request over the catalog
type Query struct {
	Search  string
	Type    model.MediaType
	Genre   string
	Shuffle bool
	Seed    int64
}

// QueryResult is the answer to a Query. Suggestions are only filled when a search matched nothing.
type QueryResult struct {
	Items       []model.MediaItem
	Suggestions []string
}

// Query filters a snapshot of the catalog, shuffled with q.Seed when q.Shuffle is set, without changing the catalog
func (c *Catalog) Query(q Query, suggestions int) QueryResult {
	view := c.Snapshot()
	if q.Shuffle {
		view.Shuffle(q.Seed)
	} else {
		view.Restore()
	}
	items := FilterGenre(FilterType(view.Search(q.Search), q.Type), q.Genre)

	res := QueryResult{Items: items}
	if len(items) == 0 && strings.TrimSpace(q.Search) != "" {
		res.Suggestions = view.Suggest(q.Search, suggestions)
	}
	return res
}
