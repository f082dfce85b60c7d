// Package gametype classifies a mission from its replay file name.
//
// The weekly schedule is an operational convention of the community running the
// server, kept as a table so it can be edited without touching the lookup code.
package gametype

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/stats/pkg/core"
)

// LTVTMarker forces GameTypeLTVT when present in the file name.
const LTVTMarker = "_LTVT"

// FileTimeLayout is the timestamp prefix of replay file names.
const FileTimeLayout = "2006_01_02__15_04"

// Slot assigns a game type to an inclusive minute-of-day range on one weekday.
type Slot struct {
	Day  time.Weekday
	From int
	To   int
	Type core.GameType
}

func hm(h, m int) int { return h*60 + m }

const endOfDay = 23*60 + 59

// Schedule is the weekly game schedule. Days and times not covered are unknown.
var Schedule = []Slot{
	{time.Tuesday, 0, endOfDay, core.GameTypeIF},
	{time.Wednesday, 0, endOfDay, core.GameTypeIF},
	{time.Thursday, 0, endOfDay, core.GameTypeTVT1},
	{time.Friday, 0, hm(19, 59), core.GameTypeTVT1},
	{time.Friday, hm(20, 0), endOfDay, core.GameTypeTVT2},
	{time.Saturday, 0, hm(16, 0), core.GameTypeTVT2},
	{time.Saturday, hm(16, 1), hm(20, 0), core.GameTypeTVT1},
	{time.Saturday, hm(20, 1), endOfDay, core.GameTypeTVT2},
	{time.Sunday, 0, endOfDay, core.GameTypeTVT2},
}

// FromTime looks t up in Schedule.
func FromTime(t time.Time) core.GameType {
	minute := hm(t.Hour(), t.Minute())
	for _, s := range Schedule {
		if s.Day == t.Weekday() && minute >= s.From && minute <= s.To {
			return s.Type
		}
	}
	return core.GameTypeUnknown
}

// FromFile classifies a replay by its path. The LTVT marker wins over the
// timestamp; a file name without a parseable timestamp is unknown.
func FromFile(path string) (core.GameType, error) {
	if strings.Contains(strings.ToUpper(path), LTVTMarker) {
		return core.GameTypeLTVT, nil
	}

	t, err := FileTime(filepath.Base(path))
	if err != nil {
		return core.GameTypeUnknown, err
	}
	return FromTime(t), nil
}

// FileTime parses the timestamp prefix of a replay file name.
func FileTime(name string) (time.Time, error) {
	if len(name) < len(FileTimeLayout) {
		return time.Time{}, fmt.Errorf("file name %q has no timestamp prefix", name)
	}
	t, err := time.Parse(FileTimeLayout, name[:len(FileTimeLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing file timestamp: %w", err)
	}
	return t, nil
}
