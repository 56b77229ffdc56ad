package flags_test

import (
	"testing"

	"github.com/nyaxt/gocs/flags"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected string
	}{
		{"", "RWC"},
		{"rw", "RWC"},
		{"RO", "R"},
		{"readonly", "R"},
	} {
		f, err := flags.Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tc.in, err)
			continue
		}
		if s := flags.FlagsToString(f); s != tc.expected {
			t.Errorf("Parse(%q): expected %q, got %q", tc.in, tc.expected, s)
		}
	}

	if _, err := flags.Parse("append"); err == nil {
		t.Errorf("Parse should fail on unknown mode")
	}
}
