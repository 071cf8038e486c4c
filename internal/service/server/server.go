package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/marquee/internal/site"
)

// NewServer initializes the router of the preview server
func NewServer(mainHandler *MainHandler, catalogHandler *CatalogHandler) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)

	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl, err := site.ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("could not parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	// Static files
	router.StaticFS("/static", http.FS(site.StaticFS()))
	// 404
	router.NoRoute(mainHandler.Error404)

	router.GET("/", mainHandler.GETIndex)
	router.GET("/data.json", mainHandler.GETData)

	router.Group("/api").
		GET("/items", catalogHandler.GETItems).
		GET("/facets", catalogHandler.GETFacets).
		GET("/health", catalogHandler.GETHealth)

	return router, nil
}

// requestLogger logs every request with the global zerolog logger
func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Debug().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("duration", time.Since(start)).
		Msg("Request")
}
