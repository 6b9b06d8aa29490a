// Package filter turns free-text phone queries into constraint sets and
// applies those sets to a catalog.
package filter

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Key names a single constraint.
type Key string

const (
	PriceMin        Key = "price_min"
	PriceMax        Key = "price_max"
	RAMMin          Key = "ram_min"
	StorageMin      Key = "storage_min"
	BatteryCapacity Key = "battery_capacity_mah"
	Brand           Key = "brand"

	KeywordGaming       Key = "keyword_gaming"
	KeywordCamera       Key = "keyword_camera"
	KeywordBudget       Key = "keyword_budget"
	KeywordBattery      Key = "keyword_battery"
	KeywordDisplay      Key = "keyword_display"
	KeywordFastCharging Key = "keyword_fast_charging"
	KeywordCompact      Key = "keyword_compact"
	KeywordPremium      Key = "keyword_premium"
)

// Constraints maps constraint keys to values: int for numeric bounds, string
// for brand, bool for keyword flags. A missing key means unconstrained.
//
// Values decoded from JSON arrive as float64; the accessors accept both.
type Constraints map[Key]any

// Has reports whether k is present.
func (c Constraints) Has(k Key) bool {
	_, ok := c[k]
	return ok
}

// Int returns the integer value of k. A float64 counts only when it is
// integral; any other type, or a fractional value, reports false.
func (c Constraints) Int(k Key) (int, bool) {
	switch v := c[k].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// String returns the string value of k.
func (c Constraints) String(k Key) (string, bool) {
	s, ok := c[k].(string)
	return s, ok
}

// Flag reports whether the keyword flag k is present and true.
func (c Constraints) Flag(k Key) bool {
	b, ok := c[k].(bool)
	return ok && b
}

// Clone returns a shallow copy. A nil receiver yields an empty set.
func (c Constraints) Clone() Constraints {
	out := make(Constraints, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the present keys sorted by name.
func (c Constraints) Keys() []Key {
	keys := make([]Key, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Capitalize upper-cases the first letter and lower-cases the rest,
// the form brands are stored in.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
