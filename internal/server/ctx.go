package server

import (
	"os"
	"path"
	"sort"

	"github.com/Venancio-01/qingshan-map/internal/config"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

// LayerInfo describes the GeoJSON files published for one category.
type LayerInfo struct {
	Name  string      `json:"name"`
	Mode  config.Mode `json:"mode"`
	Files []string    `json:"files"`
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config *config.Config
	// OutputDirs maps category names to their resolved output directories.
	OutputDirs map[string]string
	Layers     []LayerInfo
}

// NewServerContext resolves category output directories and indexes the
// GeoJSON files already generated. Categories without output are skipped.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_categories_count", len(cfg.Categories)).Msg("Initializing server context")

	dirs := make(map[string]string, len(cfg.Categories))
	layers := make([]LayerInfo, 0, len(cfg.Categories))

	for _, cat := range cfg.Categories {
		dir := cfg.Resolve(cat.Output)

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.Warn().
				Str("category", cat.Name).
				Str("path", dir).
				Msg("Skipping category: output directory not found")
			continue
		}

		files, err := doublestar.Glob(os.DirFS(dir), "**/*.geojson", doublestar.WithFilesOnly())
		if err != nil {
			log.Error().Err(err).Str("category", cat.Name).Msg("Failed to index GeoJSON files")
			continue
		}
		sort.Strings(files)

		urls := make([]string, len(files))
		for i, f := range files {
			urls[i] = path.Join("/geojson", cat.Name, f)
		}

		dirs[cat.Name] = dir
		layers = append(layers, LayerInfo{Name: cat.Name, Mode: cat.Mode, Files: urls})

		log.Debug().
			Str("category", cat.Name).
			Int("files", len(files)).
			Msg("Category added to context")
	}

	sort.Slice(layers, func(i, j int) bool {
		return layers[i].Name < layers[j].Name
	})

	log.Info().
		Int("valid_categories_count", len(layers)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:     cfg,
		OutputDirs: dirs,
		Layers:     layers,
	}
}
