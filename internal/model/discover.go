package model

import "errors"

var (
	// ErrUnauthorized is returned when upstream rejects the credential. It aborts a run.
	ErrUnauthorized = errors.New("upstream rejected the credential")
)

// DiscoverQuery holds the filters sent to the discovery endpoint
type DiscoverQuery struct {
	Window    Window
	MinVotes  int64
	MinRating float64
}

// Accepts re-applies the query filters to an item, upstream is not trusted to have done it
func (q DiscoverQuery) Accepts(item MediaItem) bool {
	return q.Window.ContainsItem(item) && item.Rating >= q.MinRating && item.VoteCount >= q.MinVotes
}

// DiscoverPage is one page of discovery results
type DiscoverPage struct {
	Page       int
	TotalPages int
	Items      []MediaItem
}
