package intent

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ListSeparator joins parallel product and quantity lists
const ListSeparator = ";"

var (
	// ErrInvalidQuantityList is returned when an item of a ";" list is not a positive whole number
	ErrInvalidQuantityList = errors.New("invalid quantity list")
	// ErrQuantityNotInteger is returned when a single quantity is not a positive whole number
	ErrQuantityNotInteger = errors.New("quantity is not an integer")
)

// SplitList splits a ";" joined list, trimming each item. An empty input gives nil.
func SplitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Quantities parses a single quantity or a ";" joined list. An empty input gives nil.
func Quantities(s FlexString) ([]int, error) {
	raw := strings.TrimSpace(s.String())
	if raw == "" {
		return nil, nil
	}

	if !strings.Contains(raw, ListSeparator) {
		q, ok := parseWhole(raw)
		if !ok {
			return nil, ErrQuantityNotInteger
		}
		return []int{q}, nil
	}

	items := SplitList(raw)
	out := make([]int, 0, len(items))
	for _, item := range items {
		q, ok := parseWhole(item)
		if !ok {
			return nil, ErrInvalidQuantityList
		}
		out = append(out, q)
	}
	return out, nil
}

// Quantity parses a single quantity, defaulting to 1 when empty
func Quantity(s FlexString) (int, error) {
	raw := strings.TrimSpace(s.String())
	if raw == "" {
		return 1, nil
	}
	q, ok := parseWhole(raw)
	if !ok {
		return 0, ErrQuantityNotInteger
	}
	return q, nil
}

// parseWhole accepts positive whole numbers such as "3" and "3.0", but not "3.5", "0" or "-2"
func parseWhole(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < 1 {
		return 0, false
	}
	return int(f), true
}
