// Package dice parses dice expressions and resolves them deterministically.
package dice

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
)

// ErrInvalidSpec reports a dice expression that cannot be parsed or exceeds
// the supported bounds.
var ErrInvalidSpec = errors.New("dice spec is invalid")

const (
	maxCount    = 100
	maxSides    = 1000
	maxModifier = 10000
)

// Spec captures a parsed dice expression such as "2d6+1".
type Spec struct {
	Count    int
	Sides    int
	Modifier int
}

// Result captures the resolved values for a spec.
type Result struct {
	Values   []int
	Modifier int
	Total    int
}

// String renders the spec back into canonical "XdY±Z" form.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.Count))
	b.WriteString("d")
	b.WriteString(strconv.Itoa(s.Sides))
	if s.Modifier > 0 {
		b.WriteString("+")
		b.WriteString(strconv.Itoa(s.Modifier))
	}
	if s.Modifier < 0 {
		b.WriteString(strconv.Itoa(s.Modifier))
	}
	return b.String()
}

// ParseSpec parses expressions of the form "XdY", "XdY+Z" or "XdY-Z". The
// count defaults to 1 when omitted ("d20" rolls one d20).
func ParseSpec(raw string) (Spec, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Spec{}, ErrInvalidSpec
	}

	countPart, rest, found := strings.Cut(normalized, "d")
	if !found || rest == "" {
		return Spec{}, ErrInvalidSpec
	}

	count := 1
	if countPart != "" {
		parsed, err := strconv.Atoi(countPart)
		if err != nil {
			return Spec{}, ErrInvalidSpec
		}
		count = parsed
	}

	sidesPart := rest
	modifier := 0
	if index := strings.IndexAny(rest, "+-"); index >= 0 {
		sidesPart = rest[:index]
		parsed, err := strconv.Atoi(rest[index:])
		if err != nil {
			return Spec{}, ErrInvalidSpec
		}
		modifier = parsed
	}
	sides, err := strconv.Atoi(sidesPart)
	if err != nil {
		return Spec{}, ErrInvalidSpec
	}

	if count < 1 || count > maxCount {
		return Spec{}, ErrInvalidSpec
	}
	if sides < 2 || sides > maxSides {
		return Spec{}, ErrInvalidSpec
	}
	if modifier < -maxModifier || modifier > maxModifier {
		return Spec{}, ErrInvalidSpec
	}

	return Spec{Count: count, Sides: sides, Modifier: modifier}, nil
}

// Roll resolves a spec.
//
// # Determinism
//
// Roll is deterministic with respect to seed. Given the same seed and spec it
// always produces the same Result, which is what lets replay trust recorded
// roll payloads without re-rolling.
func Roll(spec Spec, seed int64) Result {
	rng := rand.New(rand.NewSource(seed))
	values := make([]int, spec.Count)
	total := spec.Modifier
	for i := 0; i < spec.Count; i++ {
		value := rng.Intn(spec.Sides) + 1
		values[i] = value
		total += value
	}
	return Result{Values: values, Modifier: spec.Modifier, Total: total}
}
