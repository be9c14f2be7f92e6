package service

import (
	"context"

	"InsightHub/internal/domain/models"
)

// RegimeDetector classifies the market regime from a returns series.
type RegimeDetector interface {
	Detect(ctx context.Context, subject string, returns []float64) (models.Regime, error)
}

type VolatilityForecaster interface {
	Forecast(ctx context.Context, subject string, features map[string]float64, horizon string) (models.VolatilityForecast, error)
}

type AnomalyDetector interface {
	DetectAnomalies(ctx context.Context, subject string, returns []float64, vols []float64) ([]models.MarketAnomaly, error)
}

// EdgeScorer predicts the probability of an up move over a horizon.
type EdgeScorer interface {
	Predict(ctx context.Context, subject string, features map[string]float64, horizon string) (models.EdgeScore, error)
}
