package fusion

import (
	"time"

	"InsightHub/internal/domain/models"
	"InsightHub/pkg/config"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func params() config.Fusion { return config.Default().Fusion }

func insight(id, subject, source string, conf, act, auth float64, implication string) models.Insight {
	return models.Insight{
		ID:                id,
		Subject:           subject,
		Kind:              models.KindMarketTrend,
		Source:            source,
		Confidence:        conf,
		Actionability:     act,
		AuthenticityScore: auth,
		Implication:       implication,
		Timeframe:         models.TimeframeMinutes,
		CreatedAt:         t0,
		ExpiresAt:         t0.Add(10 * time.Minute),
	}
}

func fused(source string, kind models.Kind, conf, act, auth float64, implication string) models.FusedInsight {
	return models.FusedInsight{
		Subject:             "TKN",
		Kind:                kind,
		Implication:         implication,
		Confidence:          conf,
		Actionability:       act,
		AuthenticityScore:   auth,
		ContributingSources: []string{source},
	}
}
