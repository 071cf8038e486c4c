package infrastructure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/marquee/internal/model"
)

// DataFile is the JSON document shared by the fetcher and the viewer
type DataFile struct {
	path string
}

// NewDataFile resolves the output path and makes sure its directory exists
func NewDataFile(path string) (*DataFile, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve data file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}
	log.Debug().Str("path", path).Msg("Using data file")
	return &DataFile{path: path}, nil
}

func (df DataFile) Path() string {
	return df.path
}

func (df DataFile) Dir() string {
	return filepath.Dir(df.path)
}

// Load returns the items of the data file. A missing file is an empty list.
func (df DataFile) Load() ([]model.MediaItem, error) {
	data, err := os.ReadFile(df.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read data file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var items []model.MediaItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("malformed data file %s: %w", df.path, err)
	}
	return items, nil
}

// Encode serializes items the way Save writes them
func Encode(items []model.MediaItem) ([]byte, error) {
	if items == nil {
		items = []model.MediaItem{}
	}
	for i := range items {
		items[i].Normalize()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save replaces the data file with items, only when the serialized content changed.
// changed reports whether the file was written.
func (df DataFile) Save(items []model.MediaItem) (changed bool, err error) {
	data, err := Encode(items)
	if err != nil {
		return false, fmt.Errorf("could not encode items: %w", err)
	}
	return WriteFileIfChanged(df.path, data)
}

// WriteFileIfChanged atomically replaces path with data unless it already holds exactly data
func WriteFileIfChanged(path string, data []byte) (changed bool, err error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileAtomic writes into a temporary file of the same directory, then renames it over path
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
