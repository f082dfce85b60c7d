package parser

import (
	"bytes"
	"encoding/json"

	"github.com/OCAP2/stats/pkg/core"
)

const eventTypeKilled = "killed"

var jsonNull = []byte("null")

// decodeKills collects "killed" tuples of the form
// [frame, "killed", killedID, [killerID|"null"|null, weapon], distance].
// Other event types are ignored; malformed kill tuples are dropped and counted.
func decodeKills(events []json.RawMessage) ([]core.KillEventRaw, int) {
	var kills []core.KillEventRaw
	dropped := 0

	for _, raw := range events {
		var tuple []json.RawMessage
		if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) < 2 {
			continue
		}
		var kind string
		if err := json.Unmarshal(tuple[1], &kind); err != nil || kind != eventTypeKilled {
			continue
		}

		kill, ok := decodeKill(tuple)
		if !ok {
			dropped++
			continue
		}
		kills = append(kills, kill)
	}

	return kills, dropped
}

func decodeKill(tuple []json.RawMessage) (core.KillEventRaw, bool) {
	if len(tuple) < 5 {
		return core.KillEventRaw{}, false
	}

	frame, err := parseInt(tuple[0])
	if err != nil {
		return core.KillEventRaw{}, false
	}
	killed, err := parseInt(tuple[2])
	if err != nil {
		return core.KillEventRaw{}, false
	}
	var distance float64
	if err := json.Unmarshal(tuple[4], &distance); err != nil {
		return core.KillEventRaw{}, false
	}

	kill := core.KillEventRaw{
		Frame:    frame,
		KilledID: killed,
		Distance: distance,
	}

	var frag []json.RawMessage
	if err := json.Unmarshal(tuple[3], &frag); err != nil {
		return core.KillEventRaw{}, false
	}
	if len(frag) > 0 {
		if id, ok := killerID(frag[0]); ok {
			kill.KillerID = &id
		}
	}
	if len(frag) > 1 && !bytes.Equal(bytes.TrimSpace(frag[1]), jsonNull) {
		var weapon string
		if err := json.Unmarshal(frag[1], &weapon); err == nil {
			kill.Weapon = &weapon
		}
	}

	return kill, true
}

// killerID reads the killer slot, which is an id, the string "null" or JSON null.
func killerID(raw json.RawMessage) (int, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return 0, false
	}
	id, err := parseInt(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
