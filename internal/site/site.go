// Package site renders the viewer into a directory so it can be served as static files next to the data file
package site

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/marquee/internal/business"
	"github.com/Agurato/marquee/internal/infrastructure"
	"github.com/Agurato/marquee/internal/model"
	"github.com/Agurato/marquee/web"
)

const (
	// IndexTemplate is the name of the viewer page template
	IndexTemplate = "index.go.html"
	DefaultTitle  = "Marquee"

	staticDir = "static"
)

// Page holds what the viewer template renders
type Page struct {
	Title        string
	DataURL      string
	StaticPrefix string
	Version      string
	Types        []TypeOption
}

type TypeOption struct {
	Value model.MediaType
	Label string
}

// ParseTemplates parses the embedded viewer templates
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(web.FS, "templates/*.go.html")
}

// StaticFS returns the viewer assets, rooted at their directory
func StaticFS() fs.FS {
	sub, err := fs.Sub(web.FS, staticDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// NewPage returns the page loading dataURL, with assets under staticPrefix
func NewPage(title, dataURL, staticPrefix string) (Page, error) {
	version, err := Version()
	if err != nil {
		return Page{}, err
	}
	return Page{
		Title:        title,
		DataURL:      dataURL,
		StaticPrefix: staticPrefix,
		Version:      version,
		Types: []TypeOption{
			{Value: model.Movie, Label: business.TypeLabel(model.Movie)},
			{Value: model.Show, Label: business.TypeLabel(model.Show)},
		},
	}, nil
}

// Version is a short hash of the static assets, appended to their URLs so browsers refetch changed assets
func Version() (string, error) {
	h := sha256.New()
	err := fs.WalkDir(web.FS, staticDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(web.FS, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", p, len(data))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("could not hash static assets: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}

// Builder writes the viewer page and its assets
type Builder struct {
	tmpl  *template.Template
	title string
}

func NewBuilder(title string) (*Builder, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("could not parse templates: %w", err)
	}
	if title == "" {
		title = DefaultTitle
	}
	return &Builder{tmpl: tmpl, title: title}, nil
}

// Render returns the viewer page loading dataURL
func (b *Builder) Render(dataURL string) ([]byte, error) {
	page, err := NewPage(b.title, dataURL, staticDir+"/")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, IndexTemplate, page); err != nil {
		return nil, fmt.Errorf("could not render page: %w", err)
	}
	return buf.Bytes(), nil
}

// Build writes index.html and the static assets into dir. dataFile is the data file name, relative to dir.
// Files already holding the right content are left untouched, written lists the paths that changed.
func (b *Builder) Build(dir, dataFile string) (written []string, err error) {
	index, err := b.Render(filepath.ToSlash(dataFile))
	if err != nil {
		return nil, err
	}
	files := map[string][]byte{"index.html": index}
	err = fs.WalkDir(web.FS, staticDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(web.FS, p)
		if err != nil {
			return err
		}
		files[p] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not read static assets: %w", err)
	}

	for _, name := range sortedKeys(files) {
		target := filepath.Join(dir, filepath.FromSlash(path.Clean(name)))
		changed, err := infrastructure.WriteFileIfChanged(target, files[name])
		if err != nil {
			return written, fmt.Errorf("could not write %s: %w", target, err)
		}
		if changed {
			log.Info().Str("path", target).Msg("Wrote site file")
			written = append(written, target)
		}
	}
	return written, nil
}

func sortedKeys(files map[string][]byte) []string {
	keys := lo.Keys(files)
	slices.Sort(keys)
	return keys
}
