// Package parse converts raw staged text fields into their semantic
// types. Every function is total: it returns a value or an error, never
// guesses.
package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts seen in trip extracts, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006 03:04:05 PM",
}

// Int parses an integer field. Extracts converted from columnar formats
// often carry integers as "1.0"; a float with zero fraction is accepted.
func Int(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// Decimal parses a decimal field.
func Decimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a decimal: %q", s)
	}
	return f, nil
}

// Timestamp parses a timestamp field. Extracts carry no zone; values are
// taken as UTC so natural-key comparisons are stable across runs.
func Timestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty value")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %q", s)
}

// Flag normalizes a store-and-forward flag. Valid inputs are "Y", "N"
// (any case) or empty.
func Flag(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "", "Y", "N":
		return s, nil
	}
	return "", fmt.Errorf("not a Y/N flag: %q", s)
}
