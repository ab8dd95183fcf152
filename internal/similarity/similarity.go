// Package similarity decides whether two course titles name the same course.
package similarity

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// Tokens of this length or shorter ("de", "ia", "y") are noise.
	minTokenLen = 3
	// Two tokens match when their edit-distance ratio is above this.
	tokenThreshold = 0.8
	// Share of the shorter title's tokens that must match.
	overlapThreshold = 0.75
)

// DefaultFamilyMarkers are normalized, space-free substrings of course
// families that keep getting re-created with different subtitles.
var DefaultFamilyMarkers = []string{"iabasico"}

// Matcher compares titles. The zero value has no family markers.
type Matcher struct {
	markers []string
}

// NewMatcher returns a Matcher using the given family markers. Markers are
// normalized the same way titles are; blank markers are dropped.
func NewMatcher(markers ...string) *Matcher {
	m := &Matcher{}
	for _, raw := range markers {
		mk := strings.ReplaceAll(Normalize(raw), " ", "")
		if mk != "" {
			m.markers = append(m.markers, mk)
		}
	}
	return m
}

// Default is the Matcher built from DefaultFamilyMarkers.
func Default() *Matcher {
	return NewMatcher(DefaultFamilyMarkers...)
}

// IsSimilar reports whether titles a and b refer to the same course using the
// default family markers.
func IsSimilar(a, b string) bool {
	return Default().IsSimilar(a, b)
}

// IsSimilar reports whether titles a and b refer to the same course.
// The result does not depend on argument order.
func (m *Matcher) IsSimilar(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if m.sameFamily(na, nb) {
		return true
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	return tokensOverlap(ta, tb) || tokensOverlap(tb, ta)
}

func (m *Matcher) sameFamily(na, nb string) bool {
	ca := strings.ReplaceAll(na, " ", "")
	cb := strings.ReplaceAll(nb, " ", "")
	for _, mk := range m.markers {
		if strings.Contains(ca, mk) && strings.Contains(cb, mk) {
			return true
		}
	}
	return false
}

// tokensOverlap counts the long tokens of a that have a close token in b.
func tokensOverlap(a, b []string) bool {
	shorter := min(len(a), len(b))
	if shorter == 0 {
		return false
	}

	matches := 0
	for _, wa := range a {
		if runeLen(wa) <= minTokenLen {
			continue
		}
		for _, wb := range b {
			if runeLen(wb) <= minTokenLen {
				continue
			}
			if TokenSimilarity(wa, wb) > tokenThreshold {
				matches++
				break
			}
		}
	}
	return float64(matches) >= overlapThreshold*float64(shorter)
}

// TokenSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)), in [0,1].
func TokenSimilarity(a, b string) float64 {
	longest := max(runeLen(a), runeLen(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// Normalize lowercases a title, strips accents, drops punctuation and
// collapses whitespace. Normalize(Normalize(x)) == Normalize(x).
func Normalize(title string) string {
	// transform chains keep state, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(stripMarks, strings.ToLower(title))
	if err != nil {
		s = strings.ToLower(title)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	// compose last: dropping a rune can leave composable neighbours adjacent
	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}

func runeLen(s string) int {
	return len([]rune(s))
}
