package filter

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	priceUnderRe  = regexp.MustCompile(`(?:under|less than|below)\s*₹?\s*(\d+)`)
	priceRangeRe  = regexp.MustCompile(`₹(\d+)\s*(?:to|-)\s*₹?(\d+)`)
	priceOverRe   = regexp.MustCompile(`(?:over|above|more than)\s*₹?\s*(\d+)`)
	priceAroundRe = regexp.MustCompile(`(?:around|about)\s*₹?\s*(\d+)`)

	ramExplicitRe     = regexp.MustCompile(`(\d+)\s*gb\s*ram`)
	ramMinRe          = regexp.MustCompile(`(?:min|at least)\s*(\d+)\s*gb(?:\s*ram)?`)
	storageExplicitRe = regexp.MustCompile(`(\d+)\s*gb(?:\s*storage|\s*rom)`)
	storageMinRe      = regexp.MustCompile(`(?:min|at least)\s*(\d+)\s*gb(?:\s*storage|\s*rom)?`)
	bareGBRe          = regexp.MustCompile(`(\d+)\s*gb`)

	batteryRe = regexp.MustCompile(`(\d+)\s*mah(?:\s*battery)?`)
)

// aroundWindow is the half-width of the "around N" price window.
const aroundWindow = 2000

var keywordLists = []struct {
	key   Key
	terms []string
}{
	{KeywordGaming, []string{"gaming", "game", "performance", "powerful"}},
	{KeywordCamera, []string{"camera", "photo", "photography", "photos", "megapixel", "mp"}},
	{KeywordBudget, []string{"budget", "cheap", "affordable", "low cost"}},
	{KeywordBattery, []string{"battery", "long lasting", "endurance"}},
	{KeywordDisplay, []string{"display", "screen", "amoled", "oled", "fluid", "hz"}},
	{KeywordFastCharging, []string{"fast charging", "quick charge"}},
	{KeywordCompact, []string{"compact", "small"}},
	{KeywordPremium, []string{"premium", "flagship"}},
}

// brandAliases maps a catalog brand to a product-line word that implies it.
var brandAliases = map[string]string{
	"samsung": "galaxy",
	"apple":   "iphone",
	"xiaomi":  "redmi",
	"oneplus": "nord",
}

// rule inspects the lower-cased utterance and the constraints gathered so
// far in the same call, and returns the constraints it contributes.
type rule struct {
	name  string
	apply func(text string, acc Constraints) Constraints
}

// Extractor parses free-text phone queries into Constraints.
// It is stateless after construction and safe for concurrent use.
type Extractor struct {
	brands []string
	rules  []rule
}

// NewExtractor creates an Extractor that recognises the given brands.
// Brands are matched in the order given; the first hit wins.
func NewExtractor(brands []string) *Extractor {
	lower := make([]string, 0, len(brands))
	for _, b := range brands {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			lower = append(lower, b)
		}
	}
	e := &Extractor{brands: lower}
	e.rules = []rule{
		{"price", extractPrice},
		{"ram", extractRAM},
		{"storage", extractStorage},
		{"battery", extractBattery},
		{"keywords", extractKeywords},
		{"brand", e.extractBrand},
	}
	return e
}

// Extract returns the constraints found in utterance. Unrecognised text
// yields an empty set; it never fails.
func (e *Extractor) Extract(utterance string) Constraints {
	text := strings.ToLower(utterance)
	acc := Constraints{}
	for _, r := range e.rules {
		part := r.apply(text, acc)
		if len(part) == 0 {
			continue
		}
		slog.Debug("filter rule matched", "rule", r.name, "constraints", part)
		acc = Merge(acc, part)
	}
	slog.Debug("extracted filters", "query", utterance, "constraints", acc)
	return acc
}

func extractPrice(text string, _ Constraints) Constraints {
	out := Constraints{}
	if n, ok := firstInt(priceUnderRe, text); ok {
		out[PriceMax] = n
	}
	if m := priceRangeRe.FindStringSubmatch(text); m != nil {
		lo, okLo := atoi(m[1])
		hi, okHi := atoi(m[2])
		if okLo && okHi {
			out[PriceMin] = lo
			out[PriceMax] = hi
		}
	} else if n, ok := firstInt(priceOverRe, text); ok {
		out[PriceMin] = n
	}
	if n, ok := firstInt(priceAroundRe, text); ok {
		lo := 0
		if n > aroundWindow {
			lo = n - aroundWindow
		}
		out[PriceMin] = lo
		out[PriceMax] = n + aroundWindow
	}
	return out
}

func extractRAM(text string, _ Constraints) Constraints {
	if n, ok := firstInt(ramExplicitRe, text); ok {
		return Constraints{RAMMin: n}
	}
	if n, found := firstBareGB(text); found {
		// A bare GB figure only counts as RAM when nothing in the
		// utterance hints at storage.
		if !strings.Contains(text, "storage") && !strings.Contains(text, "rom") {
			if v, ok := atoi(n); ok {
				return Constraints{RAMMin: v}
			}
		}
		return nil
	}
	if n, ok := firstInt(ramMinRe, text); ok {
		return Constraints{RAMMin: n}
	}
	return nil
}

func extractStorage(text string, acc Constraints) Constraints {
	if n, ok := firstInt(storageExplicitRe, text); ok {
		return Constraints{StorageMin: n}
	}
	if !acc.Has(RAMMin) {
		if n, ok := firstInt(bareGBRe, text); ok {
			return Constraints{StorageMin: n}
		}
		return nil
	}
	if n, ok := firstInt(storageMinRe, text); ok {
		return Constraints{StorageMin: n}
	}
	return nil
}

func extractBattery(text string, _ Constraints) Constraints {
	if n, ok := firstInt(batteryRe, text); ok {
		return Constraints{BatteryCapacity: n}
	}
	return nil
}

func extractKeywords(text string, _ Constraints) Constraints {
	out := Constraints{}
	for _, kl := range keywordLists {
		for _, term := range kl.terms {
			if strings.Contains(text, term) {
				out[kl.key] = true
				break
			}
		}
	}
	return out
}

func (e *Extractor) extractBrand(text string, _ Constraints) Constraints {
	for _, b := range e.brands {
		alias, hasAlias := brandAliases[b]
		if strings.Contains(text, b) || (hasAlias && strings.Contains(text, alias)) {
			return Constraints{Brand: Capitalize(b)}
		}
	}
	return nil
}

// firstBareGB returns the digits of the leftmost "N gb" that is not
// followed by "storage" or "rom".
func firstBareGB(text string) (string, bool) {
	for _, loc := range bareGBRe.FindAllStringSubmatchIndex(text, -1) {
		rest := strings.TrimLeft(text[loc[1]:], " \t\n\r\f\v")
		if strings.HasPrefix(rest, "storage") || strings.HasPrefix(rest, "rom") {
			continue
		}
		return text[loc[2]:loc[3]], true
	}
	return "", false
}

func firstInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return atoi(m[1])
}

// atoi rejects digit runs that overflow int; the match is then ignored.
func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
