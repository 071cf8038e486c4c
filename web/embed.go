// Package web holds the viewer page template and its static assets
package web

import "embed"

//go:embed templates static
var FS embed.FS
