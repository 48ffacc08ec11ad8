// Package shapetest builds small shapefile fixtures for tests.
package shapetest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// WGS84PRJ is the ESRI WKT for geographic WGS 84.
const WGS84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// MercatorPROJ is a PROJ definition for spherical web mercator.
const MercatorPROJ = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +no_defs"

// Square returns a closed clockwise ring with its lower left corner at (x, y).
func Square(x, y, size float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}
}

// Reversed returns the ring in the opposite orientation.
func Reversed(ring []shp.Point) []shp.Point {
	out := make([]shp.Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}

// Polygon builds a polygon shape from rings.
func Polygon(rings ...[]shp.Point) shp.Shape {
	p := shp.Polygon(*shp.NewPolyLine(rings))
	return &p
}

// Line builds a polyline shape from parts.
func Line(parts ...[]shp.Point) shp.Shape {
	return shp.NewPolyLine(parts)
}

// Write creates a shapefile with a NAME string column and an AREA number
// column. AREA holds the 1-based record number.
func Write(t testing.TB, path string, typ shp.ShapeType, shapes []shp.Shape, names []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	w, err := shp.Create(path, typ)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField("NAME", 40),
		shp.NumberField("AREA", 10),
	})

	for i, s := range shapes {
		row := int(w.Write(s))
		require.NoError(t, w.WriteAttribute(row, 0, names[i]))
		require.NoError(t, w.WriteAttribute(row, 1, i+1))
	}
	w.Close()
}

// Squares writes a polygon shapefile with n unit squares named prefix-0..prefix-n-1.
func Squares(t testing.TB, path, prefix string, n int) {
	t.Helper()

	shapes := make([]shp.Shape, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		shapes[i] = Polygon(Square(float64(i), 0, 1))
		names[i] = prefix + "-" + string(rune('0'+i))
	}

	Write(t, path, shp.POLYGON, shapes, names)
}

// Sidecar writes a companion file such as .prj or .cpg next to the shapefile.
func Sidecar(t testing.TB, shpPath, ext, content string) {
	t.Helper()
	p := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ext
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// Corrupt writes a file with a shapefile extension that is not a shapefile.
func Corrupt(t testing.TB, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not a shapefile"), 0644))
}

// Truncate cuts n bytes off the end of the .shp file, leaving its header intact.
func Truncate(t testing.TB, path string, n int64) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-n))
}

// LanguageDriver sets the language driver ID in the .dbf header.
func LanguageDriver(t testing.TB, shpPath string, id byte) {
	t.Helper()
	p := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".dbf"

	f, err := os.OpenFile(p, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteAt([]byte{id}, 29)
	require.NoError(t, err)
}
