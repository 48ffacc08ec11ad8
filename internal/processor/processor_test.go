package processor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Venancio-01/qingshan-map/internal/config"
	"github.com/Venancio-01/qingshan-map/internal/shapefile/shapetest"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLog redirects the global logger into a buffer for the test duration.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	return &buf
}

func newConfig(root string, cats ...config.Category) *config.Config {
	cfg := &config.Config{BaseDir: root, Categories: cats}
	cfg.Normalize()
	return cfg
}

func readCollection(t *testing.T, path string) *geojson.FeatureCollection {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	return fc
}

func names(fc *geojson.FeatureCollection) []string {
	out := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, f.Properties.MustString("NAME"))
	}
	return out
}

func mountainCategory() config.Category {
	return config.Category{
		Name:       "mountain",
		Input:      filepath.Join("data", "mountain"),
		Output:     filepath.Join("public", "geojson", "mountain"),
		OutputFile: "mountains.geojson",
		Mode:       config.ModeMerge,
	}
}

func waterCategory() config.Category {
	return config.Category{
		Name:   "water",
		Input:  filepath.Join("data", "water"),
		Output: filepath.Join("public", "geojson", "water"),
		Mode:   config.ModeMirror,
	}
}

func TestMergeCategory(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	in := filepath.Join(root, "data", "mountain")
	shapetest.Squares(t, filepath.Join(in, "a.shp"), "a", 2)
	shapetest.Squares(t, filepath.Join(in, "hebei", "b.shp"), "b", 3)
	shapetest.Squares(t, filepath.Join(in, "hebei", "deep", "c.shp"), "c", 4)

	cfg := newConfig(root, mountainCategory())
	sum, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)

	out := filepath.Join(root, "public", "geojson", "mountain", "mountains.geojson")
	assert.Equal(t, Summary{
		Category:  "mountain",
		Outputs:   []string{out},
		Found:     2,
		Converted: 2,
		Features:  5,
	}, sum)

	fc := readCollection(t, out)
	assert.Equal(t, []string{"a-0", "a-1", "b-0", "b-1", "b-2"}, names(fc))
	for _, f := range fc.Features {
		assert.Equal(t, "Polygon", f.Geometry.GeoJSONType())
	}
	assert.Equal(t, "mountains", fc.ExtraMembers["name"])
}

func TestMergeAbortsOnCorruptFile(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	in := filepath.Join(root, "data", "mountain")
	shapetest.Squares(t, filepath.Join(in, "a.shp"), "a", 1)
	shapetest.Corrupt(t, filepath.Join(in, "b.shp"))
	shapetest.Squares(t, filepath.Join(in, "c.shp"), "c", 1)

	cfg := newConfig(root, mountainCategory())
	sum, err := ProcessCategory(cfg, cfg.Categories[0])

	require.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "b.shp")
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Found)
	assert.NoFileExists(t, filepath.Join(root, "public", "geojson", "mountain", "mountains.geojson"))
}

func TestMergeAbortsOnTruncatedFile(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	in := filepath.Join(root, "data", "mountain")
	shapetest.Squares(t, filepath.Join(in, "a.shp"), "a", 3)
	shapetest.Truncate(t, filepath.Join(in, "a.shp"), 40)

	cfg := newConfig(root, mountainCategory())
	sum, err := ProcessCategory(cfg, cfg.Categories[0])

	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, Summary{Category: "mountain", Found: 1, Failed: 1}, sum)
	assert.NoFileExists(t, filepath.Join(root, "public", "geojson", "mountain", "mountains.geojson"))
}

func TestMergeContinuePolicySkipsCorruptFile(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	in := filepath.Join(root, "data", "mountain")
	shapetest.Squares(t, filepath.Join(in, "a.shp"), "a", 1)
	shapetest.Corrupt(t, filepath.Join(in, "b.shp"))
	shapetest.Squares(t, filepath.Join(in, "c.shp"), "c", 2)

	cat := mountainCategory()
	cat.OnError = config.OnErrorContinue
	cfg := newConfig(root, cat)

	sum, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Found)
	assert.Equal(t, 2, sum.Converted)
	assert.Equal(t, 1, sum.Failed)

	fc := readCollection(t, sum.Outputs[0])
	assert.Equal(t, []string{"a-0", "c-0", "c-1"}, names(fc))
}

func TestMergeNoData(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(t *testing.T, in string)
	}{
		{"Missing Input", func(t *testing.T, in string) {}},
		{"Empty Input", func(t *testing.T, in string) {
			require.NoError(t, os.MkdirAll(filepath.Join(in, "hebei"), 0755))
			require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), nil, 0644))
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logs := captureLog(t)
			root := t.TempDir()
			tc.setup(t, filepath.Join(root, "data", "mountain"))

			cfg := newConfig(root, mountainCategory())
			sum, err := ProcessCategory(cfg, cfg.Categories[0])
			require.NoError(t, err)

			assert.Zero(t, sum.Found)
			assert.Empty(t, sum.Outputs)
			assert.Contains(t, logs.String(), "No data found")
			assert.Contains(t, logs.String(), "No shapefiles found")
			assert.NoDirExists(t, filepath.Join(root, "public"))
		})
	}
}

func TestMirrorCategory(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	in := filepath.Join(root, "data", "water")

	river := filepath.Join(in, "river.shp")
	shapetest.Squares(t, river, "river", 2)
	shapetest.Sidecar(t, river, ".prj", shapetest.WGS84PRJ)

	lake := filepath.Join(in, "hebei", "lakes", "lake.shp")
	shapetest.Squares(t, lake, "lake", 3)
	shapetest.Sidecar(t, lake, ".prj", shapetest.WGS84PRJ)

	cfg := newConfig(root, waterCategory())
	sum, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)

	out := filepath.Join(root, "public", "geojson", "water")
	wantLake := filepath.Join(out, "hebei", "lakes", "lake.geojson")
	wantRiver := filepath.Join(out, "river.geojson")
	assert.Equal(t, []string{wantLake, wantRiver}, sum.Outputs)
	assert.Equal(t, 2, sum.Converted)
	assert.Equal(t, 5, sum.Features)

	assert.Len(t, readCollection(t, wantLake).Features, 3)
	riverFC := readCollection(t, wantRiver)
	require.Len(t, riverFC.Features, 2)
	assert.Equal(t, "Polygon", riverFC.Features[0].Geometry.GeoJSONType())
}

func TestMirrorReprojectsToWGS84(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	path := filepath.Join(root, "data", "water", "canal.shp")
	shapetest.Write(t, path, shp.POINT, []shp.Shape{&shp.Point{X: 111319.49079327357, Y: 0}}, []string{"canal"})
	shapetest.Sidecar(t, path, ".prj", shapetest.MercatorPROJ)

	cfg := newConfig(root, waterCategory())
	sum, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)
	require.Len(t, sum.Outputs, 1)

	fc := readCollection(t, sum.Outputs[0])
	require.Len(t, fc.Features, 1)
	pt := fc.Features[0].Point()
	assert.InDelta(t, 1.0, pt.Lon(), 1e-6)
	assert.InDelta(t, 0.0, pt.Lat(), 1e-6)
}

func TestMirrorContinuesAfterFailures(t *testing.T) {
	logs := captureLog(t)
	root := t.TempDir()
	in := filepath.Join(root, "data", "water")

	shapetest.Corrupt(t, filepath.Join(in, "a_broken.shp"))
	shapetest.Squares(t, filepath.Join(in, "b_noprj.shp"), "b", 1)
	good := filepath.Join(in, "c_good.shp")
	shapetest.Squares(t, good, "c", 1)
	shapetest.Sidecar(t, good, ".prj", shapetest.WGS84PRJ)

	cfg := newConfig(root, waterCategory())
	sum, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Found)
	assert.Equal(t, 1, sum.Converted)
	assert.Equal(t, 2, sum.Failed)
	assert.FileExists(t, filepath.Join(root, "public", "geojson", "water", "c_good.geojson"))
	assert.NoFileExists(t, filepath.Join(root, "public", "geojson", "water", "b_noprj.geojson"))
	assert.Contains(t, logs.String(), "a_broken.shp")
	assert.Contains(t, logs.String(), "b_noprj.shp")
}

func TestMirrorWithoutReprojection(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	shapetest.Squares(t, filepath.Join(root, "data", "water", "a.shp"), "a", 1)

	cat := waterCategory()
	cat.TargetCRS = config.NoReprojection
	cfg := newConfig(root, cat)

	sum, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Converted)
}

func TestProcessIsIdempotent(t *testing.T) {
	captureLog(t)
	root := t.TempDir()
	shapetest.Squares(t, filepath.Join(root, "data", "mountain", "a.shp"), "a", 3)

	cfg := newConfig(root, mountainCategory())
	out := filepath.Join(root, "public", "geojson", "mountain", "mountains.geojson")

	_, err := ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	_, err = ProcessCategory(cfg, cfg.Categories[0])
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcessBadTargetCRS(t *testing.T) {
	captureLog(t)
	cat := waterCategory()
	cat.TargetCRS = "EPSG:1"
	cfg := newConfig(t.TempDir(), cat)

	_, err := ProcessCategory(cfg, cfg.Categories[0])
	assert.Error(t, err)
}
