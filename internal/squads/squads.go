// Package squads maps free-form squad tags to canonical squad names.
package squads

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry is one canonical squad and the tags its members use.
type Entry struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	// Tag is the single-tag form of older registry files.
	Tag      string `json:"tag,omitempty"`
	MainSide string `json:"main_side,omitempty"`
}

// AllTags returns Tags, falling back to the legacy Tag.
func (e Entry) AllTags() []string {
	if len(e.Tags) == 0 && e.Tag != "" {
		return []string{e.Tag}
	}
	return e.Tags
}

// Registry is the alias registry supplied for one aggregation run.
type Registry []Entry

// LoadFile reads a JSON registry file.
func LoadFile(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading squad registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing squad registry %s: %w", path, err)
	}
	return reg, nil
}

// Normalizer resolves raw tags case-insensitively. It is built once per run and
// is read-only afterwards.
type Normalizer struct {
	aliases   map[string]string
	mainSides map[string]string
}

// NewNormalizer indexes reg. Entries without a name or tags are ignored; when two
// entries claim the same tag the later one wins.
func NewNormalizer(reg Registry) *Normalizer {
	n := &Normalizer{
		aliases:   make(map[string]string),
		mainSides: make(map[string]string),
	}
	for _, e := range reg {
		tags := e.AllTags()
		if e.Name == "" || len(tags) == 0 {
			continue
		}
		for _, t := range tags {
			n.aliases[strings.ToLower(strings.TrimSpace(t))] = e.Name
		}
		if e.MainSide != "" {
			n.mainSides[e.Name] = e.MainSide
		}
	}
	return n
}

// Normalize returns the canonical squad name of raw and true, or the uppercased
// raw tag and false when the registry does not know it.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if name, ok := n.aliases[strings.ToLower(raw)]; ok {
		return name, true
	}
	return strings.ToUpper(raw), false
}

// MainSide returns the annotated main side of a canonical squad, or "".
func (n *Normalizer) MainSide(canonical string) string {
	return n.mainSides[canonical]
}

// Len reports the number of known aliases.
func (n *Normalizer) Len() int {
	return len(n.aliases)
}
