package filter

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/kalambet/phoneadvisor/internal/catalog"
)

// Thresholds implied by keyword flags.
const (
	GamingMinRAMGB       = 6
	CameraMinMP          = 48
	BudgetMaxPrice       = 15000
	BatteryKeywordMinMAh = 4500
	ScreenSplitInches    = 6.0
	PremiumMinPrice      = 50000
)

var gamingProcessors = []string{"snapdragon", "dimensity", "gaming"}

type predicate struct {
	key  Key
	keep func(r catalog.Row, c Constraints) bool
}

// predicates run in this order; each applies only when its key is present.
// A numeric bound whose value is not an integer matches no row.
var predicates = []predicate{
	{PriceMax, func(r catalog.Row, c Constraints) bool { v, ok := c.Int(PriceMax); return ok && r.PriceRs <= float64(v) }},
	{PriceMin, func(r catalog.Row, c Constraints) bool { v, ok := c.Int(PriceMin); return ok && r.PriceRs >= float64(v) }},
	{RAMMin, func(r catalog.Row, c Constraints) bool { v, ok := c.Int(RAMMin); return ok && r.RAMGB >= float64(v) }},
	{StorageMin, func(r catalog.Row, c Constraints) bool { v, ok := c.Int(StorageMin); return ok && r.StorageGB >= float64(v) }},
	{Brand, func(r catalog.Row, c Constraints) bool {
		b, _ := c.String(Brand)
		return strings.EqualFold(r.Brand, b)
	}},
	{BatteryCapacity, func(r catalog.Row, c Constraints) bool {
		v, ok := c.Int(BatteryCapacity)
		return ok && r.BatteryMAh >= float64(v)
	}},
	{KeywordGaming, func(r catalog.Row, c Constraints) bool {
		return !c.Flag(KeywordGaming) || (r.RAMGB >= GamingMinRAMGB && gamingProcessor(r.Processor))
	}},
	{KeywordCamera, func(r catalog.Row, c Constraints) bool {
		return !c.Flag(KeywordCamera) || r.BackCameraMP >= CameraMinMP
	}},
	{KeywordBudget, func(r catalog.Row, c Constraints) bool {
		if !c.Flag(KeywordBudget) || c.Has(PriceMin) || c.Has(PriceMax) {
			return true
		}
		return r.PriceRs <= BudgetMaxPrice
	}},
	{KeywordBattery, func(r catalog.Row, c Constraints) bool {
		// An explicit mAh figure overrides the keyword's default.
		if !c.Flag(KeywordBattery) || c.Has(BatteryCapacity) {
			return true
		}
		return r.BatteryMAh >= BatteryKeywordMinMAh
	}},
	{KeywordDisplay, func(r catalog.Row, c Constraints) bool {
		return !c.Flag(KeywordDisplay) || r.ScreenInches >= ScreenSplitInches
	}},
	// keyword_compact and keyword_display overlap at exactly 6.0"; both may apply.
	{KeywordCompact, func(r catalog.Row, c Constraints) bool {
		return !c.Flag(KeywordCompact) || r.ScreenInches <= ScreenSplitInches
	}},
	{KeywordPremium, func(r catalog.Row, c Constraints) bool {
		return !c.Flag(KeywordPremium) || r.PriceRs >= PremiumMinPrice
	}},
}

// Apply returns the rows satisfying every constraint in c, in catalog
// order, or ascending by price when keyword_budget is set. rows is never
// modified. keyword_fast_charging carries no predicate.
func Apply(rows []catalog.Row, c Constraints) []catalog.Row {
	out := make([]catalog.Row, 0, len(rows))
	for _, r := range rows {
		if matches(r, c) {
			out = append(out, r)
		}
	}

	if c.Flag(KeywordBudget) {
		sort.SliceStable(out, func(i, j int) bool { return out[i].PriceRs < out[j].PriceRs })
	}

	slog.Debug("filtered catalog", "constraints", c, "input_rows", len(rows), "matched", len(out))
	return out
}

func matches(r catalog.Row, c Constraints) bool {
	for _, p := range predicates {
		if !c.Has(p.key) {
			continue
		}
		if !p.keep(r, c) {
			return false
		}
	}
	return true
}

func gamingProcessor(processor string) bool {
	p := strings.ToLower(processor)
	if p == "" {
		return false
	}
	for _, name := range gamingProcessors {
		if strings.Contains(p, name) {
			return true
		}
	}
	return false
}
