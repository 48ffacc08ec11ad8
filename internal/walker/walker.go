// Package walker discovers shapefiles under an input directory.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

// Depth controls how deep the walker descends below the input root.
type Depth string

const (
	// DepthShallow matches files in the root and its immediate subdirectories.
	DepthShallow Depth = "shallow"
	// DepthRecursive matches files at any depth.
	DepthRecursive Depth = "recursive"
)

// Extension is the shapefile main file extension.
const Extension = ".shp"

// Source is a discovered shapefile.
type Source struct {
	// Path is the file path usable with os.Open.
	Path string
	// Rel is the slash separated path relative to the walked root.
	Rel string
}

// Dir returns the slash separated directory of the source relative to the root,
// "." for files placed directly in the root.
func (s Source) Dir() string {
	return path.Dir(s.Rel)
}

// Stem returns the file name without the shapefile extension.
func (s Source) Stem() string {
	return strings.TrimSuffix(path.Base(s.Rel), Extension)
}

// Pattern returns the default glob pattern for the given depth.
func Pattern(depth Depth) string {
	if depth == DepthRecursive {
		return "**/*" + Extension
	}

	return "{*" + Extension + ",*/*" + Extension + "}"
}

// Walk lazily yields shapefiles under root in lexical order.
// An empty pattern selects Pattern(depth). A missing root yields nothing.
func Walk(root string, depth Depth, pattern string) iter.Seq2[Source, error] {
	if pattern == "" {
		pattern = Pattern(depth)
	}

	return func(yield func(Source, error) bool) {
		if !doublestar.ValidatePattern(pattern) {
			yield(Source{}, fmt.Errorf("invalid pattern %q", pattern))
			return
		}

		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("root", root).Msg("Input directory does not exist")
			return
		}
		if err != nil {
			yield(Source{}, err)
			return
		}
		if !info.IsDir() {
			yield(Source{}, fmt.Errorf("%s is not a directory", root))
			return
		}

		stop := errors.New("stop")
		err = fs.WalkDir(os.DirFS(root), ".", func(rel string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(Source{}, fmt.Errorf("walk %s: %w", rel, err)) {
					return stop
				}
				return nil
			}

			if d.IsDir() {
				if depth != DepthRecursive && rel != "." && strings.Count(rel, "/") >= 1 {
					return fs.SkipDir
				}
				return nil
			}

			ok, err := doublestar.Match(pattern, rel)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			src := Source{Path: filepath.Join(root, filepath.FromSlash(rel)), Rel: rel}
			if !yield(src, nil) {
				return stop
			}

			return nil
		})
		if err != nil && !errors.Is(err, stop) {
			yield(Source{}, err)
		}
	}
}

// Collect drains Walk into a slice, stopping at the first error.
func Collect(root string, depth Depth, pattern string) ([]Source, error) {
	var out []Source
	for src, err := range Walk(root, depth, pattern) {
		if err != nil {
			return out, err
		}
		out = append(out, src)
	}

	return out, nil
}
