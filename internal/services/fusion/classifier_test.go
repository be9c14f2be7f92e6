package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"InsightHub/internal/domain/models"
)

func TestClassifyImplication(t *testing.T) {
	cases := []struct {
		text string
		want models.Strategy
	}{
		{"Strong bullish momentum, accumulate", models.StrategyAggressiveLong},
		{"whales buying the dip", models.StrategyAggressiveLong},
		{"Bearish divergence on 4h", models.StrategyCorrelationArbitrage},
		{"liquidity drain detected, exit positions", models.StrategyDefensiveShort},
		{"sell the rally", models.StrategyDefensiveShort},
		{"volatility squeeze forming", models.StrategyVolatilityCapture},
		{"ETH/BTC spread widening", models.StrategyCorrelationArbitrage},
		{"price consolidating, wait for confirmation", models.StrategyConservativeHold},
		{"nothing notable", models.StrategyAdaptiveNeutral},
		{"", models.StrategyAdaptiveNeutral},
		{"   ", models.StrategyAdaptiveNeutral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyImplication(tc.text), tc.text)
	}
}

func TestClassifyImplicationMatchesWordPrefixOnly(t *testing.T) {
	// "along" contains "long" but does not start with it
	assert.Equal(t, models.StrategyAdaptiveNeutral, ClassifyImplication("moving along"))
}
