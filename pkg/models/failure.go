// Package models contains the shared failure-analysis data types used
// across the Ana codebase.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format for all Ana timestamps:
// ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Priority is the severity level assigned to an analyzed failure.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank maps a priority to a numeric severity for ordering.
// Higher means more severe.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// FailureType identifies the source category of an analyzed failure.
type FailureType string

const (
	FailureTypeCI     FailureType = "ci_failure"
	FailureTypeVercel FailureType = "vercel_failure"
	FailureTypeBugbot FailureType = "bugbot_issue"
)

// Valid reports whether t is one of the known failure types.
func (t FailureType) Valid() bool {
	switch t {
	case FailureTypeCI, FailureTypeVercel, FailureTypeBugbot:
		return true
	}
	return false
}

// AnalyzedFailure is one classified issue extracted from CI logs or a
// bot review. Field names match the Tod wire format.
//
// Files and LineNumbers are independently populated streams: when a log
// matches multiple error categories there is no guaranteed positional
// pairing between Files[i] and LineNumbers[i].
type AnalyzedFailure struct {
	ID                 string      `json:"id"`
	Type               FailureType `json:"type"`
	Content            string      `json:"content"`
	Priority           Priority    `json:"priority"`
	Files              []string    `json:"files,omitempty"`
	LineNumbers        []int       `json:"lineNumbers,omitempty"`
	RootCause          string      `json:"rootCause,omitempty"`
	Impact             string      `json:"impact,omitempty"`
	SuggestedFix       string      `json:"suggestedFix,omitempty"`
	AffectedComponents []string    `json:"affectedComponents,omitempty"`
	RelatedPR          string      `json:"relatedPR,omitempty"`
	CreatedAt          string      `json:"createdAt"`
	Timestamp          string      `json:"timestamp,omitempty"`
}

// NewAnalyzedFailure fills in the generated fields of a failure: a unique
// ID when none is supplied, and the creation timestamp. Supplied values
// always win, which keeps review-derived IDs stable and traceable.
func NewAnalyzedFailure(f AnalyzedFailure) AnalyzedFailure {
	if f.ID == "" {
		f.ID = GenerateFailureID(f.Type, "")
	}
	if f.CreatedAt == "" {
		f.CreatedAt = time.Now().UTC().Format(TimestampLayout)
	}
	return f
}

// GenerateFailureID builds a unique failure ID of the form
// {type-slug}-{unixMillis}-{random}[-{suffix}].
func GenerateFailureID(t FailureType, suffix string) string {
	typePart := strings.ReplaceAll(string(t), "_", "-")
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	id := fmt.Sprintf("%s-%d-%s", typePart, time.Now().UnixMilli(), random)
	if suffix != "" {
		id += "-" + suffix
	}
	return id
}

// Timestamp extraction patterns compiled once at package init.
var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2}\.\d{3})\]`),                     // Vercel format: [12:34:56.789]
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z)`),      // ISO format
	regexp.MustCompile(`(\d{2}:\d{2}:\d{2})`),                                // simple time
}

// ExtractTimestamp pulls the first recognizable timestamp out of raw log
// content. Returns "" when none is found.
func ExtractTimestamp(logContent string) string {
	for _, p := range timestampPatterns {
		if m := p.FindStringSubmatch(logContent); m != nil {
			return m[1]
		}
	}
	return ""
}
