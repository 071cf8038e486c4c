package business

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/marquee/internal/model"
)

type CatalogLoader interface {
	Path() string
	Load() ([]model.MediaItem, error)
}

// FileWatcher reloads the catalog whenever the data file is rewritten
type FileWatcher struct {
	CatalogLoader

	catalog  *Catalog
	watcher  *watcher.Watcher
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewFileWatcher loads the data file into catalog and prepares polling its directory every interval.
// The directory is watched rather than the file, atomic writes replace the file instead of writing it.
func NewFileWatcher(cl CatalogLoader, catalog *Catalog, interval time.Duration) (*FileWatcher, error) {
	if interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	fw := &FileWatcher{
		CatalogLoader: cl,
		catalog:       catalog,
		watcher:       watcher.New(),
		interval:      interval,
		stop:          make(chan struct{}),
	}
	fw.watcher.SetMaxEvents(1)
	fw.watcher.FilterOps(watcher.Create, watcher.Write, watcher.Rename, watcher.Move, watcher.Remove)

	if err := fw.reload(); err != nil {
		log.Warn().Err(err).Str("path", cl.Path()).Msg("Could not load data file")
	}
	if err := fw.watcher.Add(filepath.Dir(cl.Path())); err != nil {
		return nil, fmt.Errorf("could not watch data directory: %w", err)
	}

	go fw.eventListener()

	return fw, nil
}

// Run polls until ctx is done or Stop is called, including when that happened before Run
func (fw *FileWatcher) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-fw.stop:
		}
		// Close is a no-op until Start has marked the watcher running
		fw.watcher.Wait()
		fw.watcher.Close()
	}()
	return fw.watcher.Start(fw.interval)
}

// Stop ends Run. It may be called any number of times, before or after Run.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() { close(fw.stop) })
}

// eventListener reloads the catalog on each batch of events in the data directory
func (fw *FileWatcher) eventListener() {
	for {
		select {
		case event := <-fw.watcher.Event:
			log.Debug().Str("op", event.Op.String()).Str("path", event.Path).Msg("New file event")
			if event.IsDir() {
				continue
			}
			if err := fw.reload(); err != nil {
				log.Error().Err(err).Str("path", fw.CatalogLoader.Path()).Msg("Could not reload data file")
			}
		case err := <-fw.watcher.Error:
			log.Error().Err(err).Msg("Error event")
		case <-fw.watcher.Closed:
			return
		}
	}
}

// reload replaces the catalog content. A malformed file leaves the catalog untouched.
func (fw *FileWatcher) reload() error {
	items, err := fw.CatalogLoader.Load()
	if err != nil {
		return err
	}
	fw.catalog.Replace(items)
	log.Info().Int("items", len(items)).Msg("Catalog loaded")
	return nil
}
