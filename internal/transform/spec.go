// Package transform applies bounded level changes across the records of a
// trainer table.
package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"bdsp-batch-editor/internal/errs"
)

// Kind selects how a Spec changes a level.
type Kind int

const (
	// Absolute adds the magnitude to the level.
	Absolute Kind = iota
	// Percentage scales the level by magnitude percent.
	Percentage
)

func (k Kind) String() string {
	if k == Percentage {
		return "percentage"
	}
	return "absolute"
}

// Spec is a parsed level change such as "+10" or "-25%".
type Spec struct {
	Kind      Kind
	Magnitude float64
}

func (s Spec) String() string {
	text := strconv.FormatFloat(s.Magnitude, 'f', -1, 64)
	if s.Magnitude >= 0 {
		text = "+" + text
	}
	if s.Kind == Percentage {
		text += "%"
	}
	return text
}

var (
	absolutePattern   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	percentagePattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?%$`)
)

// ParseSpec parses a level change. Surrounding whitespace is ignored.
func ParseSpec(text string) (Spec, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Spec{}, fmt.Errorf("parse level change: %w", errs.ErrEmptyInput)
	}

	kind := Absolute
	number := text
	switch {
	case percentagePattern.MatchString(text):
		kind = Percentage
		number = strings.TrimSuffix(text, "%")
	case absolutePattern.MatchString(text):
	default:
		return Spec{}, fmt.Errorf("parse level change %q: %w", text, errs.ErrInvalidFormat)
	}

	m, err := strconv.ParseFloat(number, 64)
	if err != nil || math.IsInf(m, 0) {
		return Spec{}, fmt.Errorf("parse level change %q: %w", text, errs.ErrInvalidFormat)
	}
	return Spec{Kind: kind, Magnitude: m}, nil
}

// Bounds is the inclusive level range results are clamped to.
type Bounds struct {
	Min int64
	Max int64
}

// DefaultBounds is the game's level range.
var DefaultBounds = Bounds{Min: 1, Max: 100}

// Validate rejects an empty range.
func (b Bounds) Validate() error {
	if b.Min > b.Max {
		return fmt.Errorf("bounds [%d, %d]: %w", b.Min, b.Max, errs.ErrInvalidBounds)
	}
	return nil
}

// NewLevel computes the level old becomes under s, clamped to b. Absolute
// changes truncate toward zero; percentage changes round half away from
// zero and never drop below 1 before clamping.
func (s Spec) NewLevel(old int64, b Bounds) int64 {
	var f float64
	switch s.Kind {
	case Percentage:
		f = math.Max(1, math.Round(float64(old)*(1+s.Magnitude/100)))
	default:
		f = math.Trunc(float64(old) + s.Magnitude)
	}
	f = math.Min(math.Max(f, float64(b.Min)), float64(b.Max))
	return int64(f)
}
