package domain

type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionRework Decision = "REWORK"
	DecisionReject Decision = "REJECT"
)

type Limits struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
}

// Verdict is recomputed from current defect counts on every request.
type Verdict struct {
	Decision         Decision     `json:"decision"`
	Reason           string       `json:"reason"`
	SampleSize       string       `json:"sample_size"`
	Limits           Limits       `json:"limits"`
	Counts           DefectCounts `json:"counts"`
	QuantityFallback bool         `json:"quantity_fallback,omitempty"`
}
