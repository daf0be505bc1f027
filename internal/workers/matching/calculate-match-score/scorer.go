package calculatematchscore

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/models"
)

// neutral is the contribution of a factor the customer left blank.
const neutral = 0.5

var DefaultWeights = config.ScoreWeights{
	Industry:     0.45,
	Location:     0.30,
	Budget:       0.15,
	Requirements: 0.10,
}

// Scorer is a pure weighted comparator of needs against a business profile.
type Scorer struct {
	weights config.ScoreWeights
}

func NewScorer(weights config.ScoreWeights) *Scorer {
	if weights.Sum() <= 0 {
		weights = DefaultWeights
	}
	return &Scorer{weights: weights}
}

// Score returns a relevance in [0,1] rounded to 4 decimals.
func (s *Scorer) Score(needs models.NeedsRecord, business models.BusinessProfile) float64 {
	score, _ := s.Explain(needs, business)
	return score
}

// Explain returns the score with its per-factor breakdown.
func (s *Scorer) Explain(needs models.NeedsRecord, business models.BusinessProfile) (float64, Factors) {
	keywords := business.ServiceKeywords()
	hasServices := business.HasServices()

	f := Factors{
		Industry:     textFit(needs.Industry, keywords, hasServices),
		Location:     locationFit(needs.Location, business.ServiceAreas),
		Budget:       budgetFit(needs.Budget, business),
		Requirements: textFit(needs.OtherRequirements, keywords, hasServices),
	}

	w := s.weights
	total := w.Industry*f.Industry + w.Location*f.Location + w.Budget*f.Budget + w.Requirements*f.Requirements
	return round4(clamp01(total / w.Sum())), f
}

// textFit is the share of need tokens found among the business keywords.
func textFit(need string, keywords []string, hasServices bool) float64 {
	need = strings.TrimSpace(need)
	if need == "" {
		return neutral
	}
	if !hasServices {
		return 0
	}

	needTokens := tokenize(need)
	if len(needTokens) == 0 {
		needTokens = []string{strings.ToLower(need)}
	}

	kwTokens := make(map[string]struct{})
	for _, kw := range keywords {
		for _, t := range tokenize(kw) {
			kwTokens[t] = struct{}{}
		}
	}

	matched := 0
	for _, t := range needTokens {
		if tokenMatches(t, kwTokens) {
			matched++
		}
	}
	return float64(matched) / float64(len(needTokens))
}

// minStem is the shortest shared prefix for two space-separated words to match.
const minStem = 5

func tokenMatches(t string, kwTokens map[string]struct{}) bool {
	if _, ok := kwTokens[t]; ok {
		return true
	}
	cjk := unsegmented(t)
	for kt := range kwTokens {
		if cjk != unsegmented(kt) {
			continue
		}
		if cjk {
			// no word separators, so compounds only match by containment
			if strings.Contains(kt, t) || (utf8.RuneCountInString(kt) >= 2 && strings.Contains(t, kt)) {
				return true
			}
			continue
		}
		if stemMatch(t, kt) {
			return true
		}
	}
	return false
}

// unsegmented reports whether s is written in a script without spaces
// between words.
func unsegmented(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

func stemMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	// "clean" vs "cleaning"
	if len(ra) >= 4 && string(rb[:len(ra)]) == string(ra) {
		return true
	}
	n := 0
	for n < len(ra) && ra[n] == rb[n] {
		n++
	}
	return n >= minStem
}

func locationFit(location string, areas []string) float64 {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		return neutral
	}
	for _, a := range areas {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.Contains(a, location) || strings.Contains(location, a) {
			return 1
		}
	}
	return 0
}

func budgetFit(budget models.Budget, business models.BusinessProfile) float64 {
	if !budget.Known() || !business.HasPriceRange() {
		return neutral
	}

	priceMin := business.PriceMin
	priceMax := business.PriceMax
	if priceMax <= 0 {
		priceMax = math.Inf(1)
	}

	switch {
	case budget.Max >= priceMin && budget.Min <= priceMax:
		return 1
	case budget.Min > priceMax:
		return 0.8
	case priceMin <= 0:
		return 0
	default:
		return clamp01(budget.Max / priceMin)
	}
}

// tokenize lowercases s and splits it on anything that is not a letter or
// digit, keeping tokens of at least two runes.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
