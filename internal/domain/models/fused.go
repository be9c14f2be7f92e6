package models

import "time"

// FusedInsight is the result of merging one or more insights that share a subject.
// A pass-through singleton has Merged=false and carries its member's raw scores.
type FusedInsight struct {
	ID                  string    `json:"id"`
	Subject             string    `json:"subject"`
	Kind                Kind      `json:"kind"`
	Implication         string    `json:"implication"`
	Strategy            Strategy  `json:"strategy"`
	Timeframe           Timeframe `json:"timeframe"`
	Confidence          float64   `json:"confidence"`
	Actionability       float64   `json:"actionability"`
	AuthenticityScore   float64   `json:"authenticityScore"`
	ContributingSources []string  `json:"contributingSources"`
	CorrelatedSources   []string  `json:"correlatedSources"`
	MemberIDs           []string  `json:"memberIds"`
	Merged              bool      `json:"merged"`
	CreatedAt           time.Time `json:"createdAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

func (f FusedInsight) Weight() float64 { return f.Confidence * f.Actionability }

func (f FusedInsight) Expired(now time.Time) bool {
	return !f.ExpiresAt.IsZero() && !now.Before(f.ExpiresAt)
}

func (f FusedInsight) Clone() FusedInsight {
	f.ContributingSources = cloneStrings(f.ContributingSources)
	f.CorrelatedSources = cloneStrings(f.CorrelatedSources)
	f.MemberIDs = cloneStrings(f.MemberIDs)
	return f
}

func cloneStrings(xs []string) []string {
	if xs == nil {
		return nil
	}
	return append([]string(nil), xs...)
}
