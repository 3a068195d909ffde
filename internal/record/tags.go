package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MatchMode selects the tag matching semantics. The upstream data makes both
// readings defensible ("hack" vs "hackathon"), so the mode is an explicit
// configuration choice rather than a hardcoded behavior.
type MatchMode string

const (
	// MatchExact matches whole tag tokens, case-insensitively.
	MatchExact MatchMode = "exact"
	// MatchContains matches a substring within any tag token, case-insensitively.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode validates a configured match mode, defaulting to MatchExact
// for an empty value.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MatchExact):
		return MatchExact, nil
	case string(MatchContains):
		return MatchContains, nil
	default:
		return "", fmt.Errorf("unknown tag match mode %q (want %q or %q)", s, MatchExact, MatchContains)
	}
}

// TagSet is an ordered set of tag tokens. Display case is preserved;
// membership and matching are case-insensitive.
type TagSet []string

// NewTagSet trims, drops empty entries and deduplicates case-insensitively,
// keeping the first-seen casing for display.
func NewTagSet(tokens []string) TagSet {
	set := TagSet{}
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key := strings.ToLower(tok)
		if seen[key] {
			continue
		}
		seen[key] = true
		set = append(set, tok)
	}
	return set
}

// SplitTags tokenizes a delimited tag field. Upstream stores tags as a single
// semicolon-delimited string, occasionally comma-delimited; both forms yield
// the same token set as an equivalent list form.
func SplitTags(raw string) TagSet {
	return NewTagSet(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	}))
}

// Contains reports whole-token membership, case-insensitively.
func (t TagSet) Contains(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, tok := range t {
		if strings.ToLower(tok) == tag {
			return true
		}
	}
	return false
}

// Matches applies the configured matching mode against the query.
func (t TagSet) Matches(query string, mode MatchMode) bool {
	if mode == MatchContains {
		q := strings.ToLower(strings.TrimSpace(query))
		for _, tok := range t {
			if strings.Contains(strings.ToLower(tok), q) {
				return true
			}
		}
		return false
	}
	return t.Contains(query)
}

// MarshalJSON keeps an empty set serialized as [] rather than null so the
// "tags always present" invariant survives a snapshot round-trip.
func (t TagSet) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}
