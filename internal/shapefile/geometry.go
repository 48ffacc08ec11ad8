package shapefile

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	shp "github.com/jonas-p/go-shp"
)

// ErrUnsupportedShape is returned for shape types without a GeoJSON equivalent.
var ErrUnsupportedShape = errors.New("unsupported shape type")

// geometryTypeName maps the shapefile header type to the GeoJSON base type.
func geometryTypeName(t shp.ShapeType) string {
	switch t {
	case shp.POINT, shp.POINTZ, shp.POINTM:
		return "Point"
	case shp.POLYLINE, shp.POLYLINEZ, shp.POLYLINEM:
		return "LineString"
	case shp.POLYGON, shp.POLYGONZ, shp.POLYGONM:
		return "Polygon"
	case shp.MULTIPOINT, shp.MULTIPOINTZ, shp.MULTIPOINTM:
		return "MultiPoint"
	}

	return ""
}

// toGeometry converts a decoded shape into an orb geometry. Z and M values are
// dropped. A null shape yields a nil geometry.
func toGeometry(s shp.Shape) (orb.Geometry, error) {
	switch s := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, nil
	case *shp.MultiPoint:
		return multiPoint(s.Points), nil
	case *shp.MultiPointZ:
		return multiPoint(s.Points), nil
	case *shp.MultiPointM:
		return multiPoint(s.Points), nil
	case *shp.PolyLine:
		return lines(s.Parts, s.Points), nil
	case *shp.PolyLineZ:
		return lines(s.Parts, s.Points), nil
	case *shp.PolyLineM:
		return lines(s.Parts, s.Points), nil
	case *shp.Polygon:
		return polygons(s.Parts, s.Points), nil
	case *shp.PolygonZ:
		return polygons(s.Parts, s.Points), nil
	case *shp.PolygonM:
		return polygons(s.Parts, s.Points), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedShape, s)
}

func multiPoint(points []shp.Point) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}

	return mp
}

// splitParts slices the flat point array into parts using the part start offsets.
func splitParts(parts []int32, points []shp.Point) [][]orb.Point {
	if len(parts) == 0 {
		parts = []int32{0}
	}

	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}

		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		if len(part) > 0 {
			out = append(out, part)
		}
	}

	return out
}

func lines(parts []int32, points []shp.Point) orb.Geometry {
	split := splitParts(parts, points)
	switch len(split) {
	case 0:
		return nil
	case 1:
		return orb.LineString(split[0])
	}

	mls := make(orb.MultiLineString, len(split))
	for i, p := range split {
		mls[i] = orb.LineString(p)
	}

	return mls
}

// polygons groups shapefile rings into polygons. Clockwise rings are outer
// boundaries, counter-clockwise rings are holes placed into the first outer
// ring that contains them. Holes without any outer ring are promoted.
func polygons(parts []int32, points []shp.Point) orb.Geometry {
	var (
		outers []orb.Polygon
		holes  []orb.Ring
	)
	for _, p := range splitParts(parts, points) {
		r := orb.Ring(p)
		if !r.Closed() {
			r = append(r, r[0])
		}
		if r.Orientation() == orb.CCW {
			holes = append(holes, r)
			continue
		}
		outers = append(outers, orb.Polygon{r})
	}

	if len(outers) == 0 {
		for _, h := range holes {
			outers = append(outers, orb.Polygon{h})
		}
		holes = nil
	}
	if len(outers) == 0 {
		return nil
	}

	for _, h := range holes {
		target := len(outers) - 1
		for i, o := range outers {
			if planar.RingContains(o[0], h[0]) {
				target = i
				break
			}
		}
		outers[target] = append(outers[target], h)
	}

	if len(outers) == 1 {
		return outers[0]
	}

	return orb.MultiPolygon(outers)
}
