// Package processor converts categories of shapefiles into GeoJSON files.
package processor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Venancio-01/qingshan-map/internal/config"
	"github.com/Venancio-01/qingshan-map/internal/geo"
	"github.com/Venancio-01/qingshan-map/internal/layer"
	"github.com/Venancio-01/qingshan-map/internal/shapefile"
	"github.com/Venancio-01/qingshan-map/internal/walker"

	"github.com/rs/zerolog/log"
)

// ErrAborted wraps the failure that stopped a category under the abort policy.
var ErrAborted = errors.New("processing aborted")

// Summary reports the outcome of one category run.
type Summary struct {
	Category  string   `json:"category"`
	Outputs   []string `json:"outputs,omitempty"`
	Found     int      `json:"found"`
	Converted int      `json:"converted"`
	Failed    int      `json:"failed"`
	Features  int      `json:"features"`
}

type run struct {
	cat     config.Category
	input   string
	output  string
	reader  shapefile.Options
	writer  OutputOptions
	reproj  *geo.Reprojector
	summary Summary
}

// ProcessCategory discovers and converts all shapefiles of one category,
// either merging them into a single file or mirroring the input tree.
func ProcessCategory(cfg *config.Config, cat config.Category) (Summary, error) {
	r := &run{
		cat:     cat,
		input:   cfg.Resolve(cat.Input),
		output:  cfg.Resolve(cat.Output),
		reader:  shapefile.Options{Encoding: cat.Encoding},
		writer:  OutputOptions{Precision: cat.Precision, Minify: cat.Minify, Pretty: cat.Pretty},
		summary: Summary{Category: cat.Name},
	}

	if cat.Reprojects() {
		reproj, err := geo.NewReprojector(cat.TargetCRS)
		if err != nil {
			return r.summary, fmt.Errorf("category %s: %w", cat.Name, err)
		}
		r.reproj = reproj
	}

	log.Info().
		Str("category", cat.Name).
		Str("mode", string(cat.Mode)).
		Str("input", r.input).
		Str("output", r.output).
		Str("target_crs", cat.TargetCRS).
		Msg("Processing category")

	var err error
	if cat.Mode == config.ModeMirror {
		err = r.mirror()
	} else {
		err = r.merge()
	}

	if r.summary.Found == 0 && err == nil {
		log.Warn().
			Str("category", cat.Name).
			Str("input", r.input).
			Msg("No shapefiles found")
	}

	return r.summary, err
}

// read loads and optionally reprojects one shapefile.
func (r *run) read(src walker.Source) (*layer.Layer, error) {
	l, err := shapefile.Read(src.Path, r.reader)
	if err != nil {
		return nil, err
	}

	if r.reproj != nil {
		if err := r.reproj.Apply(l); err != nil {
			return nil, fmt.Errorf("reproject to %s: %w", r.reproj.Target(), err)
		}
	}

	return l, nil
}

// fail records a per-file failure and returns a non-nil error when the
// category must stop.
func (r *run) fail(rel string, err error) error {
	r.summary.Failed++

	log.Error().
		Err(err).
		Str("category", r.cat.Name).
		Str("file", rel).
		Msg("Failed to convert shapefile")

	if r.cat.OnError == config.OnErrorAbort {
		return fmt.Errorf("%w: %s: %w", ErrAborted, rel, err)
	}

	return nil
}

func (r *run) mirror() error {
	for src, err := range walker.Walk(r.input, r.cat.Depth, r.cat.Pattern) {
		if err != nil {
			if stop := r.fail(r.input, err); stop != nil {
				return stop
			}
			continue
		}
		r.summary.Found++

		dst := filepath.Join(r.output, filepath.FromSlash(src.Dir()), src.Stem()+".geojson")

		log.Info().
			Str("category", r.cat.Name).
			Str("file", src.Rel).
			Str("dest", dst).
			Msg("Converting shapefile")

		l, err := r.read(src)
		if err == nil {
			err = saveGeoJSON(dst, l, r.writer)
		}
		if err != nil {
			if stop := r.fail(src.Rel, err); stop != nil {
				return stop
			}
			continue
		}

		r.summary.Converted++
		r.summary.Features += l.Len()
		r.summary.Outputs = append(r.summary.Outputs, dst)

		log.Info().
			Str("category", r.cat.Name).
			Str("file", src.Rel).
			Int("features", l.Len()).
			Msg("Successfully converted shapefile")
	}

	return nil
}

func (r *run) merge() error {
	var layers []*layer.Layer

	for src, err := range walker.Walk(r.input, r.cat.Depth, r.cat.Pattern) {
		if err != nil {
			if stop := r.fail(r.input, err); stop != nil {
				return stop
			}
			continue
		}
		r.summary.Found++

		log.Info().
			Str("category", r.cat.Name).
			Str("file", src.Rel).
			Msg("Reading shapefile")

		l, err := r.read(src)
		if err != nil {
			if stop := r.fail(src.Rel, err); stop != nil {
				return stop
			}
			continue
		}

		if len(layers) > 0 && !layers[0].SchemaEqual(l) {
			log.Warn().
				Str("category", r.cat.Name).
				Str("file", src.Rel).
				Str("first", layers[0].Name).
				Msg("Attribute schema differs from first layer")
		}

		r.summary.Converted++
		layers = append(layers, l)
	}

	if len(layers) == 0 {
		log.Warn().
			Str("category", r.cat.Name).
			Msg("No data found, nothing to merge")
		return nil
	}

	name := strings.TrimSuffix(r.cat.OutputFile, filepath.Ext(r.cat.OutputFile))
	merged := layer.Merge(name, layers)
	dst := filepath.Join(r.output, r.cat.OutputFile)

	log.Info().
		Str("category", r.cat.Name).
		Int("layers", len(layers)).
		Int("features", merged.Len()).
		Str("dest", dst).
		Msg("Saving merged GeoJSON")

	if err := saveGeoJSON(dst, merged, r.writer); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}

	r.summary.Features = merged.Len()
	r.summary.Outputs = append(r.summary.Outputs, dst)

	return nil
}
