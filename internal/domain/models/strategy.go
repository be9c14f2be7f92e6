package models

// Strategy is the closed taxonomy implications are classified into.
type Strategy string

const (
	StrategyAggressiveLong       Strategy = "AggressiveLong"
	StrategyDefensiveShort       Strategy = "DefensiveShort"
	StrategyVolatilityCapture    Strategy = "VolatilityCapture"
	StrategyCorrelationArbitrage Strategy = "CorrelationArbitrage"
	StrategyConservativeHold     Strategy = "ConservativeHold"
	StrategyAdaptiveNeutral      Strategy = "AdaptiveNeutral"
)

// Strategies lists every tag in lexical order.
var Strategies = []Strategy{
	StrategyAdaptiveNeutral,
	StrategyAggressiveLong,
	StrategyConservativeHold,
	StrategyCorrelationArbitrage,
	StrategyDefensiveShort,
	StrategyVolatilityCapture,
}

func (s Strategy) Valid() bool {
	for _, v := range Strategies {
		if v == s {
			return true
		}
	}
	return false
}

func (s Strategy) Bullish() bool { return s == StrategyAggressiveLong }

func (s Strategy) Bearish() bool { return s == StrategyDefensiveShort }
