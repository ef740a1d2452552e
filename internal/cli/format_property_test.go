package cli

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TruncateString never exceeds maxLen and keeps short strings intact.
func TestProperty_TruncateStringBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("result fits maxLen", prop.ForAll(
		func(s string, maxLen int) bool {
			out := TruncateString(s, maxLen)
			if len(s) <= maxLen {
				return out == s
			}
			if len(out) != maxLen {
				t.Logf("len(%q) = %d, want %d", out, len(out), maxLen)
				return false
			}
			if maxLen > 3 {
				return strings.HasSuffix(out, "...") && strings.HasPrefix(s, strings.TrimSuffix(out, "..."))
			}
			return strings.HasPrefix(s, out)
		},
		gen.AlphaString(),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

// FormatDuration picks the unit matching the magnitude.
func TestProperty_FormatDurationUnits(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	ms := regexp.MustCompile(`^\d+ms$`)
	sec := regexp.MustCompile(`^\d+\.\ds$`)
	minute := regexp.MustCompile(`^\d+m \d+s$`)
	hour := regexp.MustCompile(`^\d+h \d+m$`)

	properties.Property("format matches magnitude", prop.ForAll(
		func(n int64) bool {
			d := time.Duration(n) * time.Millisecond
			out := FormatDuration(d)
			switch {
			case d < time.Second:
				return ms.MatchString(out)
			case d < time.Minute:
				return sec.MatchString(out)
			case d < time.Hour:
				return minute.MatchString(out)
			default:
				return hour.MatchString(out)
			}
		},
		gen.Int64Range(0, 48*int64(time.Hour/time.Millisecond)),
	))

	properties.TestingRun(t)
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0f3c9a7e-5b1d-4c2e-9a8b-7d6e5f4c3b2a", "0f3c9a7e"},
	}
	for _, tt := range tests {
		if got := ShortID(tt.in); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDateTimeZero(t *testing.T) {
	if got := FormatDateTime(time.Time{}); got != "-" {
		t.Errorf("FormatDateTime(zero) = %q, want -", got)
	}
}
