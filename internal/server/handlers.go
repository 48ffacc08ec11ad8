// Package server serves generated GeoJSON layers to the web map.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Venancio-01/qingshan-map/internal/processor"
)

const etagCap = 64

// HandleLayersList serves the JSON list of published categories and files.
func (s *ServerContext) HandleLayersList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Layers)
}

// HandleGeoJSON serves files below a category output directory.
// Path: /geojson/{category}/{file...}.geojson
func (s *ServerContext) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/geojson/")
	category, file, ok := strings.Cut(rest, "/")
	if !ok || file == "" {
		http.NotFound(w, r)
		return
	}

	dir, ok := s.OutputDirs[category]
	if !ok {
		http.NotFound(w, r)
		return
	}

	// allow only clean relative GeoJSON paths to prevent path probing
	clean := path.Clean(file)
	if clean != file || strings.HasPrefix(clean, "../") || clean == ".." || path.Ext(clean) != ".geojson" {
		http.NotFound(w, r)
		return
	}

	if !s.serveFile(w, r, filepath.Join(dir, filepath.FromSlash(clean)), processor.GeoJSONMediaType) {
		http.NotFound(w, r)
	}
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}
