package geo

import (
	"github.com/OCAP2/stats/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// DistanceOptions tunes the distance estimator.
type DistanceOptions struct {
	// Stride is the number of samples skipped between measurements.
	Stride int
	// Tolerance is the minimum projected movement that counts as travel.
	Tolerance float64
}

// DefaultDistanceOptions samples every 10th frame and ignores jitter up to 0.5 units.
var DefaultDistanceOptions = DistanceOptions{Stride: 10, Tolerance: 0.5}

// ProjectFunc maps replay coordinates to map space.
type ProjectFunc func(core.Coordinates) geom.XY

// Distance estimates the projected distance travelled along positions.
// The reference point only advances when a sample moves more than the
// tolerance away from it, so jitter below the threshold never accumulates.
func Distance(positions []core.Position, project ProjectFunc, opts DistanceOptions) float64 {
	if len(positions) < 2 {
		return 0
	}
	if opts.Stride <= 0 {
		opts.Stride = DefaultDistanceOptions.Stride
	}

	var total float64
	ref := project(positions[0].Coordinates)
	for i := opts.Stride; i < len(positions); i += opts.Stride {
		cur := project(positions[i].Coordinates)
		if d := cur.Sub(ref).Length(); d > opts.Tolerance {
			total += d
			ref = cur
		}
	}

	return core.Round2(total)
}
