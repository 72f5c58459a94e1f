// Package filter implements subscription predicates: which events a
// relay should deliver for a REQ. All present fields of one filter are
// ANDed; multiple filters in a subscription are ORed.
package filter

import (
	"strings"

	"github.com/Shugur-Network/norc/event"
)

// Filter is the wire predicate object. Absent fields impose no
// constraint and are omitted from the JSON entirely, never sent as
// null. IDs and Authors match by hex prefix.
type Filter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []int    `json:"kinds,omitempty"`
	E       []string `json:"#e,omitempty"`
	P       []string `json:"#p,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
}

// Matches reports whether e satisfies every present constraint.
func (f *Filter) Matches(e *event.Event) bool {
	if len(f.IDs) > 0 && !matchesPrefix(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !matchesPrefix(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if len(f.E) > 0 && !matchesTag(f.E, e.Tags, "e") {
		return false
	}
	if len(f.P) > 0 && !matchesTag(f.P, e.Tags, "p") {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	return true
}

// MatchesAny reports whether any of the filters admits e. An empty
// filter list admits everything.
func MatchesAny(filters []Filter, e *event.Event) bool {
	if len(filters) == 0 {
		return true
	}
	for i := range filters {
		if filters[i].Matches(e) {
			return true
		}
	}
	return false
}

func matchesPrefix(prefixes []string, value string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, k := range haystack {
		if k == needle {
			return true
		}
	}
	return false
}

func matchesTag(wanted []string, tags [][]string, name string) bool {
	for _, t := range tags {
		if len(t) < 2 || t[0] != name {
			continue
		}
		for _, w := range wanted {
			if t[1] == w {
				return true
			}
		}
	}
	return false
}

// Int64 returns a pointer to v, for filling Since/Until literals.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v, for filling Limit literals.
func Int(v int) *int { return &v }
