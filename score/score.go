// Package score implements the graded score model: parsing and composing score
// tokens such as "7+", "5" or "10", the modifier cycle used by the edit
// controls, and the color palette lookup used to render a token.
package score

import (
	"regexp"
	"strconv"
)

// Default is the token shown for an item that has no stored score row.
const Default = "5"

// Modifiers that may follow a base grade of 1 to 9.
const (
	NoModifier = ""
	Plus       = "+"
	Minus      = "-"
)

// tokenRe is the stored-token grammar: a one or two digit base and an optional
// trailing modifier.
var tokenRe = regexp.MustCompile(`^(\d{1,2})([+\-])?$`)

// Parse splits a token into its base grade and modifier.
// Empty or malformed input never fails: it is repaired to the default grade so
// that a bad row can always be rendered.
func Parse(token string) (base, modifier string) {
	m := tokenRe.FindStringSubmatch(token)
	if m == nil {
		return Default, NoModifier
	}
	return m[1], m[2]
}

// Compose joins a base grade and modifier back into a token.
func Compose(base, modifier string) string {
	return base + modifier
}

// SupportsModifier reports whether base is a grade from 1 to 9. Grades 0, 10
// and 11 are terminal and never carry a modifier.
func SupportsModifier(base string) bool {
	n, err := strconv.Atoi(base)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 9
}

// Solid reports whether rows carrying this base are painted in the score
// color end to end instead of only in the score cell.
func Solid(base string) bool {
	return base == "0" || base == "10" || base == "11"
}

// NextModifier advances the three-state modifier cycle "" -> "+" -> "-" -> "".
func NextModifier(modifier string) string {
	switch modifier {
	case NoModifier:
		return Plus
	case Plus:
		return Minus
	default:
		return NoModifier
	}
}

// Toggle cycles the modifier of token. Tokens whose base cannot carry a
// modifier come back as the bare base.
func Toggle(token string) string {
	base, mod := Parse(token)
	if !SupportsModifier(base) {
		return base
	}
	return Compose(base, NextModifier(mod))
}

// WithBase replaces the base of token, keeping the current modifier only when
// the new base still supports one.
func WithBase(token, base string) string {
	_, mod := Parse(token)
	if !SupportsModifier(base) {
		mod = NoModifier
	}
	return Compose(base, mod)
}

// Valid reports whether token is one of the representable scores: "0", "10",
// "11", or a base from 1 to 9 with an optional modifier.
func Valid(token string) bool {
	m := tokenRe.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 || n > 11 || m[1] != strconv.Itoa(n) {
		return false
	}
	return m[2] == NoModifier || SupportsModifier(m[1])
}

// BaseOptions returns the selectable base grades "0" through "11".
func BaseOptions() []string {
	out := make([]string, 0, 12)
	for i := 0; i <= 11; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// Tokens returns every valid token in ascending order, e.g. "0", "1-", "1",
// "1+", ... "9+", "10", "11".
func Tokens() []string {
	out := []string{"0"}
	for i := 1; i <= 9; i++ {
		b := strconv.Itoa(i)
		out = append(out, b+Minus, b, b+Plus)
	}
	return append(out, "10", "11")
}
