package models

import "time"

// SynthesisResult is the unified decision produced by one synthesis pass.
type SynthesisResult struct {
	UnifiedStrategy      Strategy  `json:"unifiedStrategy"`
	RiskAssessment       float64   `json:"riskAssessment"`
	ProfitPotential      float64   `json:"profitPotential"`
	ExecutionPriority    float64   `json:"executionPriority"`
	CrossSystemAlignment float64   `json:"crossSystemAlignment"`
	GeneratedAt          time.Time `json:"generatedAt"`
	InputCount           int       `json:"inputCount"`
}

// DefaultSynthesis is returned when there is nothing to synthesize.
func DefaultSynthesis(at time.Time) SynthesisResult {
	return SynthesisResult{
		UnifiedStrategy:      StrategyConservativeHold,
		RiskAssessment:       0.5,
		ProfitPotential:      0.3,
		ExecutionPriority:    0.2,
		CrossSystemAlignment: 0.1,
		GeneratedAt:          at,
	}
}

// EngineMetrics is the consumer-facing summary of the live store.
type EngineMetrics struct {
	TotalInsights   int      `json:"totalInsights"`
	AvgConfidence   float64  `json:"avgConfidence"`
	AvgAuthenticity float64  `json:"avgAuthenticity"`
	SourceDiversity int      `json:"sourceDiversity"`
	CurrentStrategy Strategy `json:"currentStrategy"`
	RiskLevel       float64  `json:"riskLevel"`
}

// Snapshot is the audit export of the store plus the latest synthesis.
type Snapshot struct {
	ExportedAt    time.Time        `json:"exportedAt"`
	Insights      []Insight        `json:"insights"`
	FusedInsights []FusedInsight   `json:"fusedInsights"`
	Synthesis     *SynthesisResult `json:"synthesis,omitempty"`
}

// CycleType identifies one of the scheduler's periodic cycles.
type CycleType string

const (
	CycleHarvest CycleType = "harvest"
	CycleFuse    CycleType = "fuse"
	CycleEvict   CycleType = "evict"
)

type CycleState string

const (
	CycleIdle    CycleState = "idle"
	CycleRunning CycleState = "running"
)

// CycleStatus reports the run history of one cycle type.
type CycleStatus struct {
	Type         CycleType     `json:"type"`
	State        CycleState    `json:"state"`
	Period       time.Duration `json:"period"`
	Runs         int64         `json:"runs"`
	Skipped      int64         `json:"skipped"`
	LastRun      time.Time     `json:"lastRun"`
	LastDuration time.Duration `json:"lastDuration"`
	LastError    string        `json:"lastError,omitempty"`
}
