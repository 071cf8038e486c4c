package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/marquee/internal/business"
	"github.com/Agurato/marquee/internal/model"
)

const (
	defaultPerPage = 60
	maxPerPage     = 500
	maxSuggestions = 5
)

type CatalogQuerier interface {
	Query(q business.Query, suggestions int) business.QueryResult
	Source() []model.MediaItem
	Len() int
}

type Filterer interface {
	Facets(items []model.MediaItem) business.Facets
}

type CatalogHandler struct {
	CatalogQuerier
	Filterer
	started time.Time
}

func NewCatalogHandler(cq CatalogQuerier, f Filterer) *CatalogHandler {
	return &CatalogHandler{
		CatalogQuerier: cq,
		Filterer:       f,
		started:        time.Now(),
	}
}

// GETItems lists the catalog, filtered by search, type and genre, optionally shuffled
func (ch CatalogHandler) GETItems(c *gin.Context) {
	q := business.Query{
		Search: c.Query("search"),
		Genre:  c.Query("genre"),
	}

	if rawType := c.Query("type"); rawType != "" && rawType != "all" {
		mediaType, err := model.ParseMediaType(rawType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Type = mediaType
	}

	if rawShuffle := c.Query("shuffle"); rawShuffle != "" {
		shuffle, err := strconv.ParseBool(rawShuffle)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shuffle must be a boolean"})
			return
		}
		q.Shuffle = shuffle
	}
	if q.Shuffle {
		q.Seed = time.Now().UnixNano()
		if rawSeed := c.Query("seed"); rawSeed != "" {
			seed, err := strconv.ParseInt(rawSeed, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an integer"})
				return
			}
			q.Seed = seed
		}
	}

	page, err := intQuery(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perPage, err := intQuery(c, "per_page", defaultPerPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := ch.CatalogQuerier.Query(q, maxSuggestions)
	items, pagination := business.NewPaginater[model.MediaItem](min(perPage, maxPerPage)).GetPagination(page, res.Items)

	body := gin.H{
		"items":      items,
		"pagination": pagination,
	}
	if q.Shuffle {
		body["seed"] = strconv.FormatInt(q.Seed, 10)
	}
	if res.Suggestions != nil {
		body["suggestions"] = res.Suggestions
	}
	c.JSON(http.StatusOK, body)
}

// GETFacets lists the types, genres, years and providers present in the catalog
func (ch CatalogHandler) GETFacets(c *gin.Context) {
	c.JSON(http.StatusOK, ch.Filterer.Facets(ch.CatalogQuerier.Source()))
}

func (ch CatalogHandler) GETHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"items":  ch.CatalogQuerier.Len(),
		"uptime": time.Since(ch.started).Round(time.Second).String(),
	})
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return value, nil
}
