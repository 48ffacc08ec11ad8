// Package layer holds in-memory vector layers read from shapefiles.
package layer

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Field describes one attribute column.
type Field struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Size      int    `json:"size" yaml:"size"`
	Precision int    `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// Layer is an ordered collection of features with shared source metadata.
type Layer struct {
	// Name is usually the source file name without extension.
	Name string
	// Source is the path the layer was read from. Empty for merged layers.
	Source string
	// GeometryType is the declared GeoJSON base type (Point, LineString, Polygon, MultiPoint).
	GeometryType string
	// CRS is the spatial reference definition (WKT, PROJ string or EPSG code).
	// Empty means unknown.
	CRS string
	// Fields is the attribute schema in column order.
	Fields   []Field
	Features []*geojson.Feature
}

// Len returns the number of features.
func (l *Layer) Len() int {
	return len(l.Features)
}

// Bound returns the bounding box of all feature geometries.
func (l *Layer) Bound() orb.Bound {
	var (
		b    orb.Bound
		seen bool
	)
	for _, f := range l.Features {
		if f.Geometry == nil {
			continue
		}
		if !seen {
			b = f.Geometry.Bound()
			seen = true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}

	return b
}

// SchemaEqual reports whether both layers have the same field names and types in the same order.
func (l *Layer) SchemaEqual(o *Layer) bool {
	if len(l.Fields) != len(o.Fields) {
		return false
	}
	for i := range l.Fields {
		if l.Fields[i].Name != o.Fields[i].Name || l.Fields[i].Type != o.Fields[i].Type {
			return false
		}
	}

	return true
}

// FeatureCollection wraps the features into a GeoJSON feature collection.
// The layer name is kept as the "name" foreign member.
func (l *Layer) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = l.Features
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}
	if l.Name != "" {
		fc.ExtraMembers = geojson.Properties{"name": l.Name}
	}

	return fc
}

// Merge concatenates the features of all layers in order into a new layer.
// CRS and geometry type are taken from the first layer and nothing is
// deduplicated. Fields are the union of all schemas in first-seen order;
// a feature lacking a field gets it as null.
func Merge(name string, layers []*Layer) *Layer {
	total := 0
	for _, l := range layers {
		total += l.Len()
	}

	merged := &Layer{
		Name:     name,
		Features: make([]*geojson.Feature, 0, total),
	}
	seen := make(map[string]bool)
	uniform := true
	for i, l := range layers {
		if i == 0 {
			merged.GeometryType = l.GeometryType
			merged.CRS = l.CRS
		} else {
			if merged.GeometryType != l.GeometryType {
				merged.GeometryType = ""
			}
			if !layers[0].SchemaEqual(l) {
				uniform = false
			}
		}
		for _, f := range l.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				merged.Fields = append(merged.Fields, f)
			}
		}
		merged.Features = append(merged.Features, l.Features...)
	}

	if !uniform {
		fillMissing(merged.Features, merged.Fields)
	}

	return merged
}

func fillMissing(features []*geojson.Feature, fields []Field) {
	for _, f := range features {
		if f.Properties == nil {
			f.Properties = make(geojson.Properties, len(fields))
		}
		for _, field := range fields {
			if _, ok := f.Properties[field.Name]; !ok {
				f.Properties[field.Name] = nil
			}
		}
	}
}
