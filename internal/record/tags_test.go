package record

import (
	"slices"
	"testing"
)

func TestSplitTags_DelimitedForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"semicolons", "hack; authentication; security", []string{"hack", "authentication", "security"}},
		{"commas", "hack, authentication, security", []string{"hack", "authentication", "security"}},
		{"mixed delimiters", "hack; authentication, security", []string{"hack", "authentication", "security"}},
		{"extra whitespace", "  hack ;  dashboard  ", []string{"hack", "dashboard"}},
		{"empty string", "", nil},
		{"only delimiters", "; ; ,", nil},
		{"case-insensitive dedupe keeps first casing", "Hack; hack; HACK", []string{"Hack"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitTags(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("SplitTags(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitTags_MatchesListForm(t *testing.T) {
	fromString := SplitTags("hack; dashboard; filtering")
	fromList := NewTagSet([]string{"hack", "dashboard", "filtering"})

	if !slices.Equal(fromString, fromList) {
		t.Errorf("delimited form %v and list form %v should yield identical token sets", fromString, fromList)
	}
}

func TestTagSet_Contains(t *testing.T) {
	tags := SplitTags("Hackathon; Security; CI-CD")

	tests := []struct {
		query string
		want  bool
	}{
		{"hackathon", true},
		{"HACKATHON", true},
		{" security ", true},
		{"hack", false}, // whole tokens only
		{"ci-cd", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := tags.Contains(tt.query); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestTagSet_Matches_Modes(t *testing.T) {
	tags := SplitTags("hackathon; security")

	tests := []struct {
		query string
		mode  MatchMode
		want  bool
	}{
		{"hack", MatchExact, false},
		{"hack", MatchContains, true},
		{"hackathon", MatchExact, true},
		{"hackathon", MatchContains, true},
		{"SECURITY", MatchContains, true},
		{"missing", MatchContains, false},
	}

	for _, tt := range tests {
		if got := tags.Matches(tt.query, tt.mode); got != tt.want {
			t.Errorf("Matches(%q, %s) = %v, want %v", tt.query, tt.mode, got, tt.want)
		}
	}
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		input   string
		want    MatchMode
		wantErr bool
	}{
		{"", MatchExact, false},
		{"exact", MatchExact, false},
		{"contains", MatchContains, false},
		{"  Contains ", MatchContains, false},
		{"fuzzy", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMatchMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMatchMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMatchMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
