// Package names splits player display names into a canonical player name and a raw squad tag.
//
// The rules follow the community naming habit "[TAG] Name", "TAG.Name" or "TAG Name":
//
//  1. the first bracketed segment, uppercased, is the tag;
//  2. otherwise the text before the first dot, trimmed and uppercased;
//  3. otherwise the first whitespace token, uppercased, when there is more than one token;
//  4. otherwise there is no tag.
//
// The canonical name is the last whitespace token after bracketed segments and dots are
// replaced by spaces, lowercased.
//
// Known failure modes: a single token with no delimiter yields no tag, and a plain
// two word name such as "John Smith" yields the tag "JOHN".
package names

import (
	"regexp"
	"strings"
)

var bracketed = regexp.MustCompile(`\[(.*?)\]`)

// Extract returns the canonical player name and the raw squad tag of display.
func Extract(display string) (name, tag string) {
	return Name(display), Tag(display)
}

// Tag returns the raw uppercased squad tag of display, or "".
func Tag(display string) string {
	if m := bracketed.FindStringSubmatch(display); m != nil {
		return strings.ToUpper(m[1])
	}

	if before, _, ok := strings.Cut(display, "."); ok {
		return strings.ToUpper(strings.TrimSpace(before))
	}

	if parts := strings.Fields(display); len(parts) > 1 {
		return strings.ToUpper(parts[0])
	}

	return ""
}

// Name returns the canonical lowercased player name of display, or "".
func Name(display string) string {
	clean := bracketed.ReplaceAllString(display, " ")
	clean = strings.ReplaceAll(clean, ".", " ")

	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1])
}
