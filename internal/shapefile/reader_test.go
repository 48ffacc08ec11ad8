package shapefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Venancio-01/qingshan-map/internal/shapefile/shapetest"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestReadPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lakes.shp")
	shapetest.Squares(t, path, "lake", 3)
	shapetest.Sidecar(t, path, ".prj", shapetest.WGS84PRJ)

	l, err := Read(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, "lakes", l.Name)
	assert.Equal(t, path, l.Source)
	assert.Equal(t, "Polygon", l.GeometryType)
	assert.Equal(t, shapetest.WGS84PRJ, l.CRS)
	require.Equal(t, 3, l.Len())

	require.Len(t, l.Fields, 2)
	assert.Equal(t, "NAME", l.Fields[0].Name)
	assert.Equal(t, "C", l.Fields[0].Type)
	assert.Equal(t, "AREA", l.Fields[1].Name)
	assert.Equal(t, "N", l.Fields[1].Type)

	for i, f := range l.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		require.True(t, ok, "feature %d is %T", i, f.Geometry)
		require.Len(t, poly, 1)
		assert.Equal(t, orb.Point{float64(i), 0}, poly[0][0])
		assert.Equal(t, "lake-"+string(rune('0'+i)), f.Properties["NAME"])
		assert.Equal(t, int64(i+1), f.Properties["AREA"])
	}
}

func TestReadWithoutProjection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peaks.shp")
	shapetest.Squares(t, path, "peak", 1)

	l, err := Read(path, Options{})
	require.NoError(t, err)
	assert.Empty(t, l.CRS)
}

func TestReadPolygonWithHoleAndIsland(t *testing.T) {
	path := filepath.Join(t.TempDir(), "islands.shp")
	shape := shapetest.Polygon(
		shapetest.Square(0, 0, 10),
		shapetest.Reversed(shapetest.Square(2, 2, 2)),
		shapetest.Square(20, 20, 1),
	)
	shapetest.Write(t, path, shp.POLYGON, []shp.Shape{shape}, []string{"island"})

	l, err := Read(path, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())

	mp, ok := l.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok, "got %T", l.Features[0].Geometry)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2, "hole belongs to the containing outer ring")
	assert.Len(t, mp[1], 1)
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.shp")
	single := shapetest.Line([]shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	multi := shapetest.Line(
		[]shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
		[]shp.Point{{X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 3}},
	)
	shapetest.Write(t, path, shp.POLYLINE, []shp.Shape{single, multi}, []string{"a", "b"})

	l, err := Read(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, "LineString", l.GeometryType)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, orb.LineString{{0, 0}, {1, 1}}, l.Features[0].Geometry)

	mls, ok := l.Features[1].Geometry.(orb.MultiLineString)
	require.True(t, ok)
	require.Len(t, mls, 2)
	assert.Len(t, mls[1], 3)
}

func TestReadPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summits.shp")
	shapes := []shp.Shape{&shp.Point{X: 116.4, Y: 39.9}, &shp.Point{X: 113.6, Y: 34.7}}
	shapetest.Write(t, path, shp.POINT, shapes, []string{"a", "b"})

	l, err := Read(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Point", l.GeometryType)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, orb.Point{116.4, 39.9}, l.Features[0].Geometry)
}

func TestReadDecodesCodePage(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("长江")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "water.shp")
	shapetest.Write(t, path, shp.POLYGON, []shp.Shape{shapetest.Polygon(shapetest.Square(0, 0, 1))}, []string{gbk})

	t.Run("From CPG", func(t *testing.T) {
		shapetest.Sidecar(t, path, ".cpg", "GBK\n")

		l, err := Read(path, Options{})
		require.NoError(t, err)
		assert.Equal(t, "长江", l.Features[0].Properties["NAME"])
	})

	t.Run("Override", func(t *testing.T) {
		shapetest.Sidecar(t, path, ".cpg", "UTF-8")

		l, err := Read(path, Options{Encoding: "cp936"})
		require.NoError(t, err)
		assert.Equal(t, "长江", l.Features[0].Properties["NAME"])
	})

	t.Run("From Language Driver", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(strings.TrimSuffix(path, ".shp")+".cpg"))
		shapetest.LanguageDriver(t, path, 0x4d)

		l, err := Read(path, Options{})
		require.NoError(t, err)
		assert.Equal(t, "长江", l.Features[0].Properties["NAME"])
	})

	t.Run("Unknown Override", func(t *testing.T) {
		_, err := Read(path, Options{Encoding: "klingon"})
		assert.Error(t, err)
	})
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.shp")
	shapetest.Corrupt(t, path)

	_, err := Read(path, Options{})
	assert.Error(t, err)
}

func TestReadTruncated(t *testing.T) {
	// a unit square record is 136 bytes
	for _, n := range []int64{40, 136} {
		t.Run(fmt.Sprintf("Cut %d", n), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "broken.shp")
			shapetest.Squares(t, path, "lake", 3)
			shapetest.Truncate(t, path, n)

			l, err := Read(path, Options{})
			assert.Error(t, err)
			assert.Nil(t, l)
		})
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.shp"), Options{})
	assert.Error(t, err)
}
