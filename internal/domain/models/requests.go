package models

import "time"

// Requests for the insight HTTP API. Bound with echo, defaulted and validated in pkg/http.

// IngestInsightRequest pushes one insight from an external producer.
type IngestInsightRequest struct {
	ID                 string    `json:"id"`
	Subject            string    `json:"subject" validate:"required"`
	Kind               string    `json:"kind" validate:"required,oneof=PatternAnomaly MarketTrend SentimentSignal IntegritySignal"`
	Source             string    `json:"source" validate:"required"`
	Confidence         float64   `json:"confidence" validate:"gte=0,lte=1"`
	Actionability      float64   `json:"actionability" validate:"gte=0,lte=1"`
	AuthenticityScore  float64   `json:"authenticityScore" validate:"gte=0,lte=1"`
	Implication        string    `json:"implication"`
	Timeframe          string    `json:"timeframe" default:"minutes"`
	CorrelatedSubjects []string  `json:"correlatedSubjects"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// ToInsight converts the request; id and timestamps are filled by the admission pipeline.
func (r IngestInsightRequest) ToInsight() Insight {
	return Insight{
		ID:                 r.ID,
		Subject:            r.Subject,
		Kind:               Kind(r.Kind),
		Source:             r.Source,
		Confidence:         r.Confidence,
		Actionability:      r.Actionability,
		AuthenticityScore:  r.AuthenticityScore,
		Implication:        r.Implication,
		Timeframe:          NormalizeTimeframe(r.Timeframe),
		CorrelatedSubjects: r.CorrelatedSubjects,
		ExpiresAt:          r.ExpiresAt,
	}
}

type ActiveInsightsRequest struct {
	Subject  string `query:"subject" json:"subject"`
	Strategy string `query:"strategy" json:"strategy" validate:"omitempty,oneof=AggressiveLong DefensiveShort VolatilityCapture CorrelationArbitrage ConservativeHold AdaptiveNeutral"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

type SnapshotRequest struct {
	// Since accepts RFC3339 or unix seconds; empty exports everything.
	Since string `query:"since" json:"since"`
}
