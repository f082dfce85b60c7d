package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/stats/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_DefaultCalibration(t *testing.T) {
	tests := []struct {
		name string
		x, y int
		want geom.XY
	}{
		{"origin", 0, 0, geom.XY{X: -256, Y: 0}},
		{"top right", 10000, 10000, geom.XY{X: 0, Y: 256}},
		{"center", 5000, 5000, geom.XY{X: -128, Y: 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.x, tt.y, DefaultCalibration)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestProject_Multiplier(t *testing.T) {
	cal := Calibration{WorldSize: 8192, Multiplier: 2}
	got := Project(4096, 2048, cal)

	// px = 8192, py = 16384 - 4096 = 12288, scale = 16384
	assert.InDelta(t, -12288.0/16384*256, got.X, 1e-9)
	assert.InDelta(t, 8192.0/16384*256, got.Y, 1e-9)
}

func TestProjector_MemoizedResultIsIdentical(t *testing.T) {
	p, err := NewProjector(16)
	require.NoError(t, err)

	first := p.Project(1234, 5678, "Altis", DefaultCalibration)
	second := p.Project(1234, 5678, "Altis", DefaultCalibration)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.Len())
}

func TestProjector_CalibrationIsPartOfKey(t *testing.T) {
	p, err := NewProjector(16)
	require.NoError(t, err)

	a := p.Project(100, 100, "Tanoa", DefaultCalibration)
	b := p.Project(100, 100, "Tanoa", Calibration{WorldSize: 15360, Multiplier: 1})

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, p.Len())
}

func TestProjector_Bounded(t *testing.T) {
	p, err := NewProjector(4)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		p.Project(i, i, "Stratis", DefaultCalibration)
	}
	assert.Equal(t, 4, p.Len())
}

func TestDirCalibrations(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "altis", "v1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "altis", "v1", "map.json"),
		[]byte(`{"worldSize": 30720, "multiplier": 1.5}`), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "two", "a"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "two", "b"), 0755))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken", "v1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken", "v1", "map.json"),
		[]byte(`{not json`), 0644))

	src := DirCalibrations{Root: root}

	assert.Equal(t, Calibration{WorldSize: 30720, Multiplier: 1.5}, src.Calibration("altis"))
	assert.Equal(t, DefaultCalibration, src.Calibration("missing"))
	assert.Equal(t, DefaultCalibration, src.Calibration("two"))
	assert.Equal(t, DefaultCalibration, src.Calibration("broken"))
}

func TestDirCalibrations_PartialFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vr", "v1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vr", "v1", "map.json"),
		[]byte(`{"worldSize": 2048}`), 0644))

	got := DirCalibrations{Root: root}.Calibration("vr")
	assert.Equal(t, Calibration{WorldSize: 2048, Multiplier: 1}, got)
}

func TestStaticCalibrations(t *testing.T) {
	src := StaticCalibrations{"malden": {WorldSize: 12800}}

	assert.Equal(t, Calibration{WorldSize: 12800, Multiplier: 1}, src.Calibration("malden"))
	assert.Equal(t, DefaultCalibration, src.Calibration("other"))
}

func identity(c core.Coordinates) geom.XY {
	return geom.XY{X: float64(c.X), Y: float64(c.Y)}
}

func positions(coords ...[2]int) []core.Position {
	out := make([]core.Position, len(coords))
	for i, c := range coords {
		out[i] = core.Position{Coordinates: core.Coordinates{X: c[0], Y: c[1]}}
	}
	return out
}

func TestDistance(t *testing.T) {
	opts := DistanceOptions{Stride: 1, Tolerance: 0.5}

	tests := []struct {
		name string
		pos  []core.Position
		opts DistanceOptions
		want float64
	}{
		{"empty", nil, opts, 0},
		{"single point", positions([2]int{3, 4}), opts, 0},
		{"stationary", positions([2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1}), opts, 0},
		{"straight line", positions([2]int{0, 0}, [2]int{3, 4}, [2]int{6, 8}), opts, 10},
		{
			"stride skips samples",
			positions([2]int{0, 0}, [2]int{100, 100}, [2]int{0, 3}, [2]int{0, 0}, [2]int{0, 4}),
			DistanceOptions{Stride: 2, Tolerance: 0.5},
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.pos, identity, tt.opts))
		})
	}
}

func TestDistance_JitterDoesNotAccumulate(t *testing.T) {
	scaled := func(c core.Coordinates) geom.XY {
		return geom.XY{X: float64(c.X) / 10, Y: float64(c.Y) / 10}
	}
	// every step is 0.4 units from the reference
	pos := positions([2]int{0, 0}, [2]int{4, 0}, [2]int{0, 0}, [2]int{-4, 0}, [2]int{0, 0})

	assert.Equal(t, 0.0, Distance(pos, scaled, DistanceOptions{Stride: 1, Tolerance: 0.5}))
}

func TestDistance_ReferenceOnlyAdvancesPastTolerance(t *testing.T) {
	scaled := func(c core.Coordinates) geom.XY {
		return geom.XY{X: float64(c.X) / 10, Y: 0}
	}
	// 0.3 then 0.6 from the original reference: only the second counts
	pos := positions([2]int{0, 0}, [2]int{3, 0}, [2]int{6, 0})

	assert.Equal(t, 0.6, Distance(pos, scaled, DistanceOptions{Stride: 1, Tolerance: 0.5}))
}
