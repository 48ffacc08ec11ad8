// Package geo handles coordinate reference systems and coordinate conversions.
package geo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ctessum/geom/proj"
)

// WGS84 is the geographic long/lat reference used by GeoJSON.
const WGS84 = "EPSG:4326"

// ErrNoCRS is returned when a layer without a known reference system has to be reprojected.
var ErrNoCRS = errors.New("layer has no coordinate reference system")

// epsg maps the EPSG codes accepted by name to PROJ definitions.
var epsg = map[string]string{
	"EPSG:4326": "+proj=longlat +datum=WGS84 +no_defs",
	"EPSG:4490": "+proj=longlat +ellps=GRS80 +no_defs",
	"EPSG:3857": "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +no_defs",
}

// projectionAliases renames WKT projections proj only knows by another name.
// Gauss-Kruger is Transverse Mercator (CGCS2000 3 and 6 degree zones).
var projectionAliases = strings.NewReplacer(
	`PROJECTION["Gauss_Kruger"]`, `PROJECTION["Transverse_Mercator"]`,
	`PROJECTION["Gauss-Kruger"]`, `PROJECTION["Transverse_Mercator"]`,
)

// Definition expands an EPSG code into its PROJ definition.
// WKT projection names are normalized; PROJ strings are returned unchanged.
func Definition(crs string) string {
	crs = strings.TrimSpace(crs)
	if def, ok := epsg[strings.ToUpper(crs)]; ok {
		return def
	}

	return projectionAliases.Replace(crs)
}

// ParseCRS parses an EPSG code, a PROJ string or ESRI/OGC WKT.
func ParseCRS(crs string) (*proj.SR, error) {
	def := Definition(crs)
	if def == "" {
		return nil, ErrNoCRS
	}
	if strings.HasPrefix(strings.ToUpper(def), "EPSG:") {
		return nil, fmt.Errorf("unsupported reference system %s", def)
	}

	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parse reference system: %w", err)
	}

	return sr, nil
}
