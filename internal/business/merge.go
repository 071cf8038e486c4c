package business

import (
	"cmp"
	"slices"

	"github.com/Agurato/marquee/internal/model"
)

// Merge combines the previous output with the items fetched by a run.
// Fetched items overwrite existing ones sharing the same (type, id). Existing items whose key was
// rediscovered and rejected by the run are removed, so are all items keep refuses.
// The result is sorted with SortItems.
func Merge(existing, fetched []model.MediaItem, rejected map[model.MediaKey]struct{}, keep func(model.MediaItem) bool) (merged []model.MediaItem, removed int) {
	byKey := make(map[model.MediaKey]model.MediaItem, len(existing)+len(fetched))
	for _, item := range fetched {
		byKey[item.Key()] = item
	}
	for _, item := range existing {
		if _, ok := byKey[item.Key()]; ok {
			continue
		}
		if _, ok := rejected[item.Key()]; ok {
			removed++
			continue
		}
		byKey[item.Key()] = item
	}

	merged = make([]model.MediaItem, 0, len(byKey))
	for _, item := range byKey {
		if !keep(item) {
			removed++
			continue
		}
		merged = append(merged, item)
	}
	SortItems(merged)
	return merged, removed
}

// SortItems orders items by release date, newest first, then by type and id
func SortItems(items []model.MediaItem) {
	slices.SortFunc(items, func(a, b model.MediaItem) int {
		if c := cmp.Compare(b.ReleaseDate, a.ReleaseDate); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
