package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/marquee/internal/site"
)

type MainHandler struct {
	page     site.Page
	dataPath string
}

// NewMainHandler serves the viewer page and the data file at dataPath
func NewMainHandler(title, dataPath string) (*MainHandler, error) {
	page, err := site.NewPage(title, "/data.json", "/static/")
	if err != nil {
		return nil, err
	}
	return &MainHandler{
		page:     page,
		dataPath: dataPath,
	}, nil
}

// Error404 answers unknown routes
func (mh MainHandler) Error404(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.String(http.StatusNotFound, "404 - Not Found")
}

// GETIndex displays the viewer page
func (mh MainHandler) GETIndex(c *gin.Context) {
	c.HTML(http.StatusOK, site.IndexTemplate, mh.page)
}

// GETData serves the data file as written by the fetcher
func (mh MainHandler) GETData(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.File(mh.dataPath)
}
