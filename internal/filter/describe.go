package filter

import "fmt"

// Describe renders c as ordered, human-readable phrases: brand, price,
// numeric minimums, then keywords.
func Describe(c Constraints) []string {
	var parts []string

	if b, ok := c.String(Brand); ok {
		parts = append(parts, fmt.Sprintf("a %s phone", b))
	}

	lo, hasLo := c.Int(PriceMin)
	hi, hasHi := c.Int(PriceMax)
	switch {
	case hasLo && hasHi && lo == hi:
		parts = append(parts, fmt.Sprintf("around ₹%d", lo))
	case hasLo && hasHi:
		parts = append(parts, fmt.Sprintf("between ₹%d and ₹%d", lo, hi))
	case hasHi:
		parts = append(parts, fmt.Sprintf("under ₹%d", hi))
	case hasLo:
		parts = append(parts, fmt.Sprintf("over ₹%d", lo))
	}

	if n, ok := c.Int(RAMMin); ok {
		parts = append(parts, fmt.Sprintf("with at least %dGB RAM", n))
	}
	if n, ok := c.Int(StorageMin); ok {
		parts = append(parts, fmt.Sprintf("with at least %dGB storage", n))
	}
	if n, ok := c.Int(BatteryCapacity); ok {
		parts = append(parts, fmt.Sprintf("with at least %d mAh battery", n))
	}

	if c.Has(KeywordGaming) {
		parts = append(parts, "for gaming")
	}
	if c.Has(KeywordCamera) {
		parts = append(parts, "with a good camera")
	}
	if c.Has(KeywordBattery) && !c.Has(BatteryCapacity) {
		parts = append(parts, "with long battery life")
	}
	if c.Has(KeywordDisplay) {
		parts = append(parts, "with a great display")
	}
	if c.Has(KeywordCompact) {
		parts = append(parts, "a compact size")
	}
	if c.Has(KeywordPremium) {
		parts = append(parts, "a premium/flagship model")
	}
	return parts
}
