package models

import "time"

// AnaResults is one analysis run's output: the ordered failure list plus
// summary counts. Created once per invocation and never mutated.
type AnaResults struct {
	Failures               []AnalyzedFailure `json:"failures"`
	Summary                string            `json:"summary"`
	AnalysisDate           string            `json:"analysisDate"`
	TotalFailures          int               `json:"totalFailures"`
	CriticalFailures       int               `json:"criticalFailures"`
	HighPriorityFailures   int               `json:"highPriorityFailures"`
	MediumPriorityFailures int               `json:"mediumPriorityFailures"`
	LowPriorityFailures    int               `json:"lowPriorityFailures"`
}

// NewAnaResults builds a results bundle from a failure list, tallying the
// per-priority counts so they always match the failures slice.
func NewAnaResults(failures []AnalyzedFailure, summary string) AnaResults {
	r := AnaResults{
		Failures:      failures,
		Summary:       summary,
		AnalysisDate:  time.Now().UTC().Format(TimestampLayout),
		TotalFailures: len(failures),
	}
	if r.Failures == nil {
		r.Failures = []AnalyzedFailure{}
	}
	for _, f := range failures {
		switch f.Priority {
		case PriorityCritical:
			r.CriticalFailures++
		case PriorityHigh:
			r.HighPriorityFailures++
		case PriorityMedium:
			r.MediumPriorityFailures++
		case PriorityLow:
			r.LowPriorityFailures++
		}
	}
	return r
}
