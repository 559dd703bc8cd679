package models

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes one failed field rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// JoinValidationErrors renders a slice of validation errors as a single
// comma-separated message string.
func JoinValidationErrors(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, ", ")
}

// Field predicates. Each rule is independently testable.

func validateRequired(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

func validateDatetime(field, value string) *ValidationError {
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		return &ValidationError{Field: field, Message: "Invalid datetime format"}
	}
	return nil
}

func validateNonNegative(field string, value int) *ValidationError {
	if value < 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s must not be negative", field)}
	}
	return nil
}

// ValidateAnalyzedFailure checks every field rule of a failure record.
// Returns nil when the record is valid.
func ValidateAnalyzedFailure(f AnalyzedFailure) []ValidationError {
	var errs []ValidationError

	if e := validateRequired("id", f.ID); e != nil {
		errs = append(errs, ValidationError{Field: "id", Message: "ID is required"})
	}
	if !f.Type.Valid() {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: "Type must be ci_failure, vercel_failure, or bugbot_issue",
		})
	}
	if e := validateRequired("content", f.Content); e != nil {
		errs = append(errs, ValidationError{Field: "content", Message: "Content is required"})
	}
	if !f.Priority.Valid() {
		errs = append(errs, ValidationError{
			Field:   "priority",
			Message: "Priority must be low, medium, high, or critical",
		})
	}
	if f.CreatedAt == "" {
		errs = append(errs, ValidationError{Field: "createdAt", Message: "Invalid datetime format"})
	} else if e := validateDatetime("createdAt", f.CreatedAt); e != nil {
		errs = append(errs, *e)
	}
	for _, n := range f.LineNumbers {
		if n <= 0 {
			errs = append(errs, ValidationError{
				Field:   "lineNumbers",
				Message: "Line numbers must be positive integers",
			})
			break
		}
	}

	return errs
}

// ValidateAnaResults checks a results bundle, including that the summary
// counts agree with the failure list.
func ValidateAnaResults(r AnaResults) []ValidationError {
	var errs []ValidationError

	if e := validateRequired("summary", r.Summary); e != nil {
		errs = append(errs, ValidationError{Field: "summary", Message: "Summary is required"})
	}
	if r.AnalysisDate == "" {
		errs = append(errs, ValidationError{Field: "analysisDate", Message: "Invalid datetime format"})
	} else if e := validateDatetime("analysisDate", r.AnalysisDate); e != nil {
		errs = append(errs, *e)
	}

	for _, field := range []struct {
		name  string
		value int
	}{
		{"totalFailures", r.TotalFailures},
		{"criticalFailures", r.CriticalFailures},
		{"highPriorityFailures", r.HighPriorityFailures},
		{"mediumPriorityFailures", r.MediumPriorityFailures},
		{"lowPriorityFailures", r.LowPriorityFailures},
	} {
		if e := validateNonNegative(field.name, field.value); e != nil {
			errs = append(errs, *e)
		}
	}

	if r.TotalFailures != len(r.Failures) {
		errs = append(errs, ValidationError{
			Field:   "totalFailures",
			Message: "totalFailures must equal the number of failures",
		})
	}
	if r.CriticalFailures+r.HighPriorityFailures+r.MediumPriorityFailures+r.LowPriorityFailures != r.TotalFailures {
		errs = append(errs, ValidationError{
			Field:   "totalFailures",
			Message: "priority counts must sum to totalFailures",
		})
	}

	for _, f := range r.Failures {
		errs = append(errs, ValidateAnalyzedFailure(f)...)
	}

	return errs
}

// ValidateAnaWebhookPayload checks the wire-format payload before any
// network call is made.
func ValidateAnaWebhookPayload(p AnaWebhookPayload) []ValidationError {
	var errs []ValidationError

	if e := validateRequired("summary", p.Summary); e != nil {
		errs = append(errs, ValidationError{Field: "summary", Message: "Summary is required"})
	}
	if p.AnalysisDate == "" {
		errs = append(errs, ValidationError{Field: "analysisDate", Message: "Invalid datetime format"})
	} else if e := validateDatetime("analysisDate", p.AnalysisDate); e != nil {
		errs = append(errs, *e)
	}
	if p.PRNumber < 0 {
		errs = append(errs, ValidationError{
			Field:   "prNumber",
			Message: "prNumber must be a positive integer",
		})
	}
	for _, f := range p.Failures {
		errs = append(errs, ValidateAnalyzedFailure(f)...)
	}

	return errs
}
