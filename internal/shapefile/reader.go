// Package shapefile reads ESRI shapefiles into vector layers.
package shapefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Venancio-01/qingshan-map/internal/layer"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
)

// Options tune how a shapefile is decoded.
type Options struct {
	// Encoding overrides the DBF charset. When empty the .cpg sidecar is used,
	// then the DBF language driver, falling back to UTF-8.
	Encoding string
}

// Read decodes the shapefile at path together with its .dbf, .prj and .cpg sidecars.
func Read(path string, opts Options) (l *layer.Layer, err error) {
	// go-shp may panic on truncated records
	defer func() {
		if r := recover(); r != nil {
			l, err = nil, fmt.Errorf("read %s: corrupt shapefile: %v", filepath.Base(path), r)
		}
	}()

	header, hasDBF, err := readDBFHeader(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	enc, err := resolveCharset(path, opts.Encoding, header.LanguageDriver)
	if err != nil {
		return nil, err
	}
	dec := newDecoder(enc)

	crs, err := readPRJ(path)
	if err != nil {
		return nil, fmt.Errorf("read projection: %w", err)
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer r.Close()

	geomType := geometryTypeName(r.GeometryType)
	if geomType == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedShape, r.GeometryType)
	}

	l = &layer.Layer{
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Source:       path,
		GeometryType: geomType,
		CRS:          crs,
		Fields:       convertFields(r.Fields(), dec),
	}

	for r.Next() {
		row, shape := r.Shape()

		g, err := toGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row, err)
		}

		f := &geojson.Feature{
			Type:       "Feature",
			Geometry:   g,
			Properties: make(geojson.Properties, len(l.Fields)),
		}
		for i, field := range l.Fields {
			f.Properties[field.Name] = attributeValue(field, r.ReadAttribute(row, i), dec)
		}

		l.Features = append(l.Features, f)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if hasDBF && uint32(l.Len()) != header.Records {
		return nil, fmt.Errorf("read %s: truncated, %d of %d records", filepath.Base(path), l.Len(), header.Records)
	}

	log.Trace().
		Str("file", path).
		Str("geometry", geomType).
		Int("features", l.Len()).
		Int("fields", len(l.Fields)).
		Bool("crs", crs != "").
		Msg("Shapefile decoded")

	return l, nil
}

// resolveCharset picks the DBF charset: override, then .cpg, then the
// header's language driver. nil means UTF-8.
func resolveCharset(path, override string, ldid byte) (encoding.Encoding, error) {
	name := override
	if name == "" {
		cpg, err := readCPG(path)
		if err != nil {
			return nil, fmt.Errorf("read code page: %w", err)
		}
		name = cpg
	}
	if name == "" {
		name = languageDriverCharset(ldid)
	}
	if name == "" {
		return nil, nil
	}

	enc, err := Charset(name)
	if err != nil {
		if override != "" {
			return nil, err
		}
		log.Warn().Str("file", path).Str("cpg", name).Msg("Unknown code page, reading attributes as UTF-8")
		return nil, nil
	}

	return enc, nil
}

// readPRJ returns the WKT projection stored next to the shapefile, or "".
func readPRJ(shpPath string) (string, error) {
	p, ok := sidecar(shpPath, ".prj")
	if !ok {
		return "", nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// sidecar finds a companion file with the given extension in either case.
func sidecar(shpPath, ext string) (string, bool) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	return "", false
}
