// Package util provides small helpers shared by the stats pipeline.
package util

import (
	"path/filepath"
	"strings"
)

// Stem returns the base name of path without its final extension, looking
// through a ".gz" suffix first. Dots inside the name are kept, so
// "op.v2.json.gz" yields "op.v2".
func Stem(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, ".gz")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" {
		return base
	}
	return name
}

// FileDate returns the date part of a replay file name. Files named
// "2024_01_05__21_30_mission" carry the date before the double underscore;
// older names fall back to the first three underscore separated fields.
func FileDate(path string) string {
	stem := Stem(path)
	if i := strings.Index(stem, "__"); i >= 0 {
		return stem[:i]
	}
	parts := strings.Split(stem, "_")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "_")
}
