package geo

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	geom "github.com/peterstace/simplefeatures/geom"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MAP PROJECTION
// Replay coordinates are simulation metres with the origin at the bottom left of the
// terrain. Map coordinates are the 256 unit tile space used by the web map, rotated so
// that north points up and x grows to the east.

const instrumentationName = "github.com/OCAP2/stats/internal/geo"

// DisplaySize is the edge length of the projected map space.
const DisplaySize = 256.0

// DefaultCacheSize bounds the projection memo when no size is configured.
const DefaultCacheSize = 200000

// Calibration is the per-map sidecar record.
type Calibration struct {
	WorldSize  float64 `json:"worldSize"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultCalibration is used for maps with no sidecar.
var DefaultCalibration = Calibration{WorldSize: 10000, Multiplier: 1}

type projectionKey struct {
	x, y    int
	mapName string
	cal     Calibration
}

// Projector converts replay coordinates into map coordinates. It is safe for
// concurrent use and memoizes results in a bounded LRU.
type Projector struct {
	cache *lru.Cache[projectionKey, geom.XY]

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewProjector creates a projector caching at most size results.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewProjector(size int) (*Projector, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[projectionKey, geom.XY](size)
	if err != nil {
		return nil, fmt.Errorf("creating projection cache: %w", err)
	}

	p := &Projector{cache: cache}

	m := otel.Meter(instrumentationName)
	p.hits, err = m.Int64Counter(
		"projector.cache.hits",
		metric.WithDescription("Projection lookups served from cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hits counter: %w", err)
	}
	p.misses, err = m.Int64Counter(
		"projector.cache.misses",
		metric.WithDescription("Projection lookups computed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating misses counter: %w", err)
	}

	return p, nil
}

// Project returns the map coordinates of (x, y) on mapName.
func (p *Projector) Project(x, y int, mapName string, cal Calibration) geom.XY {
	key := projectionKey{x: x, y: y, mapName: mapName, cal: cal}
	mapAttr := metric.WithAttributes(attribute.String("map", mapName))

	if xy, ok := p.cache.Get(key); ok {
		p.hits.Add(context.Background(), 1, mapAttr)
		return xy
	}

	xy := Project(x, y, cal)
	p.cache.Add(key, xy)
	p.misses.Add(context.Background(), 1, mapAttr)
	return xy
}

// Len reports the number of memoized projections.
func (p *Projector) Len() int {
	return p.cache.Len()
}

// Project applies the calibration without memoization.
func Project(x, y int, cal Calibration) geom.XY {
	scale := cal.WorldSize * cal.Multiplier
	px := float64(x) * cal.Multiplier
	py := scale - float64(y)*cal.Multiplier

	return geom.XY{
		X: -py / scale * DisplaySize,
		Y: px / scale * DisplaySize,
	}
}
