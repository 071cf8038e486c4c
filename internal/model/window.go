package model

import "time"

// Window is the trailing span of release dates accepted by a run
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window of the last days days ending on the day of now
func NewWindow(now time.Time, days int) Window {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}
}

// Contains reports whether the day t falls inside the window, both bounds included
func (w Window) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(w.Start) && !day.After(w.End)
}

// ContainsItem reports whether the item has a release date inside the window
func (w Window) ContainsItem(item MediaItem) bool {
	released, ok := item.Released()
	return ok && w.Contains(released)
}

func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

func (w Window) EndDate() string {
	return w.End.Format(DateLayout)
}
