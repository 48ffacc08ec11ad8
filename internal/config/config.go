// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Venancio-01/qingshan-map/internal/walker"

	"gopkg.in/yaml.v3"
)

// Mode selects how discovered shapefiles are written.
type Mode string

const (
	// ModeMerge concatenates all layers of a category into one GeoJSON file.
	ModeMerge Mode = "merge"
	// ModeMirror writes one GeoJSON file per shapefile, mirroring the input tree.
	ModeMirror Mode = "mirror"
)

// ErrorPolicy selects what happens when one shapefile fails.
type ErrorPolicy string

const (
	// OnErrorContinue logs the failure and processes the remaining files.
	OnErrorContinue ErrorPolicy = "continue"
	// OnErrorAbort stops the category at the first failure.
	OnErrorAbort ErrorPolicy = "abort"
)

// NoReprojection disables reprojection when used as target CRS.
const NoReprojection = "none"

// Config represents the root configuration file structure.
type Config struct {
	// BaseDir resolves relative input and output paths. Defaults to the
	// directory of the configuration file.
	BaseDir    string     `yaml:"base_dir,omitempty" json:"-"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Category is one group of shapefiles converted together, e.g. mountains or water bodies.
type Category struct {
	Name   string `yaml:"name" json:"name"`
	Input  string `yaml:"input" json:"-"`
	Output string `yaml:"output" json:"-"`

	// OutputFile is the merged file name inside Output (merge mode only).
	OutputFile string `yaml:"output_file,omitempty" json:"output_file,omitempty"`
	// Pattern overrides the glob used to select shapefiles relative to Input.
	Pattern string `yaml:"pattern,omitempty" json:"-"`
	// TargetCRS is an EPSG code, PROJ string or WKT, or "none".
	TargetCRS string `yaml:"target_crs,omitempty" json:"target_crs,omitempty"`
	// Encoding overrides the DBF code page of every shapefile.
	Encoding string `yaml:"encoding,omitempty" json:"-"`

	Mode    Mode         `yaml:"mode" json:"mode"`
	Depth   walker.Depth `yaml:"depth,omitempty" json:"-"`
	OnError ErrorPolicy  `yaml:"on_error,omitempty" json:"-"`

	// Precision trims numbers to this many significant digits when minifying.
	Precision int  `yaml:"precision,omitempty" json:"-"`
	Minify    bool `yaml:"minify,omitempty" json:"-"`
	Pretty    bool `yaml:"pretty,omitempty" json:"-"`
}

// Default returns the built-in configuration: mountain and water layers
// merged into one file each under public/geojson.
func Default() *Config {
	cfg := &Config{
		Categories: []Category{
			{
				Name:       "mountain",
				Input:      filepath.Join("data", "mountain"),
				Output:     filepath.Join("public", "geojson", "mountain"),
				OutputFile: "mountains.geojson",
				Mode:       ModeMerge,
			},
			{
				Name:       "water",
				Input:      filepath.Join("data", "water"),
				Output:     filepath.Join("public", "geojson", "water"),
				OutputFile: "waters.geojson",
				Mode:       ModeMerge,
			},
		},
	}
	cfg.Normalize()

	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Dir(path)
	} else if !filepath.IsAbs(cfg.BaseDir) {
		cfg.BaseDir = filepath.Join(filepath.Dir(path), cfg.BaseDir)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist
// and fallback is set.
func LoadOrDefault(path string, fallback bool) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if fallback && errors.Is(err, os.ErrNotExist) {
		return Default(), true, nil
	}

	return nil, false, err
}

// Normalize fills mode dependent defaults. Mirror mode walks recursively,
// reprojects to WGS84 and keeps going on errors; merge mode walks one level
// deep, keeps coordinates and aborts on errors.
func (c *Config) Normalize() {
	for i := range c.Categories {
		cat := &c.Categories[i]

		if cat.Mode == "" {
			cat.Mode = ModeMerge
		}

		switch cat.Mode {
		case ModeMirror:
			if cat.Depth == "" {
				cat.Depth = walker.DepthRecursive
			}
			if cat.OnError == "" {
				cat.OnError = OnErrorContinue
			}
			if cat.TargetCRS == "" {
				cat.TargetCRS = "EPSG:4326"
			}
		default:
			if cat.Depth == "" {
				cat.Depth = walker.DepthShallow
			}
			if cat.OnError == "" {
				cat.OnError = OnErrorAbort
			}
			if cat.TargetCRS == "" {
				cat.TargetCRS = NoReprojection
			}
			if cat.OutputFile == "" {
				cat.OutputFile = cat.Name + ".geojson"
			}
		}
	}
}

// Validate checks the configuration for missing or conflicting values.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return errors.New("no categories defined")
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("category #%d: name is required", i)
		}
		if seen[cat.Name] {
			return fmt.Errorf("category %s: duplicate name", cat.Name)
		}
		seen[cat.Name] = true

		if cat.Input == "" || cat.Output == "" {
			return fmt.Errorf("category %s: input and output are required", cat.Name)
		}

		switch cat.Mode {
		case ModeMerge, ModeMirror:
		default:
			return fmt.Errorf("category %s: unknown mode %q", cat.Name, cat.Mode)
		}

		switch cat.Depth {
		case walker.DepthShallow, walker.DepthRecursive:
		default:
			return fmt.Errorf("category %s: unknown depth %q", cat.Name, cat.Depth)
		}

		switch cat.OnError {
		case OnErrorContinue, OnErrorAbort:
		default:
			return fmt.Errorf("category %s: unknown on_error %q", cat.Name, cat.OnError)
		}

		if cat.Precision < 0 {
			return fmt.Errorf("category %s: precision must be >= 0", cat.Name)
		}
	}

	return nil
}

// OverrideMode switches every category to m. Categories that change mode get
// the depth, error policy and target CRS defaults of the new mode.
func (c *Config) OverrideMode(m Mode) {
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.Mode == m {
			continue
		}
		cat.Mode = m
		cat.Depth = ""
		cat.OnError = ""
		cat.TargetCRS = ""
	}
	c.Normalize()
}

// Find returns the category with the given name.
func (c *Config) Find(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}

	return Category{}, false
}

// Resolve joins a category path with the base directory unless it is absolute.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}

	return filepath.Join(c.BaseDir, p)
}

// Reprojects reports whether the category converts coordinates.
func (cat Category) Reprojects() bool {
	return cat.TargetCRS != "" && cat.TargetCRS != NoReprojection
}

// OutputPath returns the merged output file path relative to the base directory.
func (cat Category) OutputPath() string {
	return filepath.Join(cat.Output, cat.OutputFile)
}
