package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the tagged variant of an insight.
type Kind string

const (
	KindPatternAnomaly  Kind = "PatternAnomaly"
	KindMarketTrend     Kind = "MarketTrend"
	KindSentimentSignal Kind = "SentimentSignal"
	KindIntegritySignal Kind = "IntegritySignal"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPatternAnomaly, KindMarketTrend, KindSentimentSignal, KindIntegritySignal:
		return true
	default:
		return false
	}
}

// Timeframe is the suggested horizon bucket of an insight.
type Timeframe string

const (
	TimeframeImmediate Timeframe = "immediate"
	TimeframeMinutes   Timeframe = "minutes"
	TimeframeHours     Timeframe = "hours"
	TimeframeDays      Timeframe = "days"
)

func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeImmediate, TimeframeMinutes, TimeframeHours, TimeframeDays:
		return true
	default:
		return false
	}
}

// NormalizeTimeframe maps loose input ("1m", "Hours", "") onto a bucket, defaulting to minutes.
func NormalizeTimeframe(s string) Timeframe {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "immediate", "now", "1s", "tick":
		return TimeframeImmediate
	case "minutes", "minute", "1m", "5m", "15m", "30m":
		return TimeframeMinutes
	case "hours", "hour", "1h", "4h":
		return TimeframeHours
	case "days", "day", "1d":
		return TimeframeDays
	default:
		return TimeframeMinutes
	}
}

// Insight is a single scored observation about a subject from one source.
type Insight struct {
	ID                 string    `json:"id"`
	Subject            string    `json:"subject"`
	Kind               Kind      `json:"kind"`
	Source             string    `json:"source"`
	Confidence         float64   `json:"confidence"`
	Actionability      float64   `json:"actionability"`
	AuthenticityScore  float64   `json:"authenticityScore"`
	Implication        string    `json:"implication"`
	Timeframe          Timeframe `json:"timeframe"`
	CorrelatedSubjects []string  `json:"correlatedSubjects"`
	CreatedAt          time.Time `json:"createdAt"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// Weight is confidence × actionability, the ordering key for eviction and listing.
func (i Insight) Weight() float64 { return i.Confidence * i.Actionability }

// Expired reports whether the insight is past its expiry at now.
func (i Insight) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Validate checks score ranges and required fields. The returned error wraps ErrMalformedInsight.
func (i Insight) Validate() error {
	if strings.TrimSpace(i.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrMalformedInsight)
	}
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedInsight)
	}
	if !i.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedInsight, i.Kind)
	}
	scores := [...]struct {
		name string
		v    float64
	}{
		{"confidence", i.Confidence},
		{"actionability", i.Actionability},
		{"authenticityScore", i.AuthenticityScore},
	}
	for _, s := range scores {
		if !inUnit(s.v) {
			return fmt.Errorf("%w: %s %v outside [0,1]", ErrMalformedInsight, s.name, s.v)
		}
	}
	if !i.Timeframe.Valid() {
		return fmt.Errorf("%w: unknown timeframe %q", ErrMalformedInsight, i.Timeframe)
	}
	if !i.ExpiresAt.IsZero() && !i.CreatedAt.IsZero() && i.ExpiresAt.Before(i.CreatedAt) {
		return fmt.Errorf("%w: expiresAt before createdAt", ErrMalformedInsight)
	}
	return nil
}

// Clone returns a copy that shares no slices with the receiver.
func (i Insight) Clone() Insight {
	if i.CorrelatedSubjects != nil {
		i.CorrelatedSubjects = append([]string(nil), i.CorrelatedSubjects...)
	}
	return i
}

// inUnit rejects NaN as well as out-of-range values.
func inUnit(v float64) bool { return v >= 0 && v <= 1 }
