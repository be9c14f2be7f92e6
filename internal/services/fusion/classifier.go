package fusion

import (
	"strings"
	"unicode"

	"InsightHub/internal/domain/models"
)

type implicationRule struct {
	tag      models.Strategy
	prefixes []string
}

// Rules are evaluated in order; the first rule with a matching word wins.
// A word matches when it starts with one of the rule's prefixes.
var implicationRules = []implicationRule{
	{models.StrategyCorrelationArbitrage, []string{"correlat", "arbitrag", "spread", "divergen", "basis"}},
	{models.StrategyVolatilityCapture, []string{"volatil", "breakout", "squeeze", "swing", "whipsaw"}},
	{models.StrategyDefensiveShort, []string{"short", "sell", "bear", "dump", "downtrend", "exit", "rug", "drain", "crash"}},
	{models.StrategyAggressiveLong, []string{"long", "buy", "bull", "accumulat", "uptrend", "pump", "rally", "moon"}},
	{models.StrategyConservativeHold, []string{"hold", "stable", "wait", "conservativ", "consolidat", "sideways"}},
}

// ClassifyImplication maps free-text implication onto the strategy taxonomy.
// It is total: text matching no rule yields AdaptiveNeutral.
func ClassifyImplication(text string) models.Strategy {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return models.StrategyAdaptiveNeutral
	}
	for _, rule := range implicationRules {
		for _, w := range words {
			for _, p := range rule.prefixes {
				if strings.HasPrefix(w, p) {
					return rule.tag
				}
			}
		}
	}
	return models.StrategyAdaptiveNeutral
}
