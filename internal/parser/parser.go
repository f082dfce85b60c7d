package parser

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/OCAP2/stats/pkg/core"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMalformedDocument is returned when the replay is not a valid JSON document.
	ErrMalformedDocument = errors.New("malformed replay document")
	// ErrMalformedEntity is returned when an entity is missing a required field.
	ErrMalformedEntity = errors.New("malformed entity")
)

// Document is the top level of an OCAP replay. Entities and events are kept raw
// so they can be decoded independently.
type Document struct {
	MissionName  string            `json:"missionName"`
	WorldName    string            `json:"worldName"`
	EndFrame     int               `json:"endFrame"`
	CaptureDelay float64           `json:"captureDelay"`
	Entities     []json.RawMessage `json:"entities"`
	Events       []json.RawMessage `json:"events"`
}

// Decoded holds the three independently decoded collections of a replay.
// Players and Vehicles are in document order.
type Decoded struct {
	Players  []*core.Player
	Vehicles []*core.Vehicle
	Kills    []core.KillEventRaw

	// DroppedEvents counts "killed" tuples that could not be decoded.
	DroppedEvents int
}

// Decoder turns raw replay bytes into the entity/event model.
// It has zero external dependencies beyond a logger.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a decoder.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// ParseDocument parses the top-level document. Gzip-compressed input is
// detected by its magic bytes.
func (d *Decoder) ParseDocument(data []byte) (*Document, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		defer func() { _ = zr.Close() }()
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// Decode parses the document and decodes its entities and events.
func (d *Decoder) Decode(data []byte) (*Document, *Decoded, error) {
	doc, err := d.ParseDocument(data)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := d.DecodeEntities(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, decoded, nil
}

// DecodeEntities decodes players, vehicles and kill events concurrently. Each
// task only reads the shared document and writes its own result.
func (d *Decoder) DecodeEntities(doc *Document) (*Decoded, error) {
	var (
		players  []*core.Player
		vehicles []*core.Vehicle
		kills    []core.KillEventRaw
		dropped  int
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		players, err = decodePlayers(doc.Entities)
		return err
	})
	g.Go(func() error {
		var err error
		vehicles, err = decodeVehicles(doc.Entities)
		return err
	})
	g.Go(func() error {
		kills, dropped = decodeKills(doc.Events)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if dropped > 0 {
		d.logger.Warn("Dropped malformed kill events", "count", dropped)
	}
	d.logger.Debug("Decoded replay",
		"missionName", doc.MissionName,
		"players", len(players),
		"vehicles", len(vehicles),
		"kills", len(kills))

	return &Decoded{
		Players:       players,
		Vehicles:      vehicles,
		Kills:         kills,
		DroppedEvents: dropped,
	}, nil
}

// EndMissionSide returns the winning side of the first "endMission" event.
// The result is nil when there is no such event or it carries no side.
func EndMissionSide(doc *Document) *string {
	for _, raw := range doc.Events {
		var tuple []json.RawMessage
		if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) < 2 {
			continue
		}
		var kind string
		if err := json.Unmarshal(tuple[1], &kind); err != nil || kind != "endMission" {
			continue
		}
		if len(tuple) < 3 {
			return nil
		}
		var payload []json.RawMessage
		if err := json.Unmarshal(tuple[2], &payload); err != nil || len(payload) == 0 {
			return nil
		}
		var side string
		if err := json.Unmarshal(payload[0], &side); err != nil {
			return nil
		}
		return &side
	}
	return nil
}

// number is a JSON number that may be written as an integer or a float.
// SQF has no integer type, so recorders emit both forms.
type number float64

func (n number) Int() int {
	return int(math.RoundToEven(float64(n)))
}

// parseInt parses a JSON number carrying an integral value.
func parseInt(raw json.RawMessage) (int, error) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return 0, errors.New("null is not an integer")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int(f), nil
}

// flexBool accepts true/false as well as 0/1.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch s {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("invalid boolean %s", s)
		}
		*b = f != 0
	}
	return nil
}
