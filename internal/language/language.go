package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrInvalidTag reports input that is not a usable BCP 47 tag.
var ErrInvalidTag = errors.New("invalid language tag")

// Normalize parses code and returns its canonical form.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTag)
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, trimmed)
	}
	if tag == language.Und {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, trimmed)
	}
	return tag.String(), nil
}

// Valid reports whether code parses as a concrete tag.
func Valid(code string) bool {
	_, err := Normalize(code)
	return err == nil
}

// Equal reports whether two codes name the same tag. Unparseable codes fall
// back to a case-insensitive comparison.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return na == nb
}

// DisplayName returns the English name of code, e.g. "Spanish" for "es".
// Returns "Unknown" for empty input and the uppercased code when no name is
// known.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	normalized, err := Normalize(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	tag := language.Make(normalized)
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
