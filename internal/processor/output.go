package processor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Venancio-01/qingshan-map/internal/layer"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	minjson "github.com/tdewolff/minify/v2/json"
)

// GeoJSONMediaType is the registered media type of GeoJSON documents.
const GeoJSONMediaType = "application/geo+json"

// OutputOptions control GeoJSON serialization.
type OutputOptions struct {
	// Precision limits numbers to this many significant digits when Minify is set.
	Precision int
	Minify    bool
	Pretty    bool
}

// encodeGeoJSON serializes the layer as a feature collection.
func encodeGeoJSON(l *layer.Layer, opts OutputOptions) ([]byte, error) {
	data, err := json.Marshal(l.FeatureCollection())
	if err != nil {
		return nil, err
	}

	switch {
	case opts.Minify:
		m := minify.New()
		m.Add(GeoJSONMediaType, &minjson.Minifier{Precision: opts.Precision})
		data, err = m.Bytes(GeoJSONMediaType, data)
		if err != nil {
			return nil, err
		}
	case opts.Pretty:
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}

	return append(data, '\n'), nil
}

// saveGeoJSON writes the layer to path, creating missing directories and
// replacing any existing file.
func saveGeoJSON(path string, l *layer.Layer, opts OutputOptions) (err error) {
	data, err := encodeGeoJSON(l, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
			if err == nil {
				err = closeErr
			}
		}
	}()

	_, err = f.Write(data)
	return err
}
