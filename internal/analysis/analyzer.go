// Package analysis turns raw CI and deployment logs into classified failure
// records using pattern-based recognizers.
package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anahq/ana/pkg/models"
)

// RawIssue is one classified problem found in a log, before conversion to
// an AnalyzedFailure.
type RawIssue struct {
	Description        string
	Priority           models.Priority
	Files              []string
	LineNumbers        []int
	RootCause          string
	Impact             string
	SuggestedFix       string
	AffectedComponents []string
	Timestamp          string
}

// Result is the output of analyzing one job's logs.
type Result struct {
	Issues            []RawIssue
	JobName           string
	AnalysisTimestamp string
}

// AnalyzeJobLogs extracts failure issues from CI job log text. It never
// fails: when no pattern matches (or the log is empty) it returns a single
// fallback issue, so callers always get at least one record.
//
// Each category recognizer scans the full text once; a log with mixed
// failures contributes issues from every matching category. The returned
// set is ordered priority-descending, so a build failure (critical) always
// surfaces first regardless of where it appears in the log.
func AnalyzeJobLogs(jobName, logText string) Result {
	logTimestamp := models.ExtractTimestamp(logText)

	var issues []RawIssue
	issues = append(issues, analyzeTypeScriptErrors(logText, logTimestamp)...)
	issues = append(issues, analyzeTestFailures(logText, logTimestamp)...)
	issues = append(issues, analyzeLintErrors(logText, logTimestamp)...)
	issues = append(issues, analyzeBuildFailures(logText, logTimestamp)...)
	issues = append(issues, analyzeCoverageFailures(logText, logTimestamp)...)

	if len(issues) == 0 {
		issues = append(issues, RawIssue{
			Description:  fmt.Sprintf("%s failed - check logs for details", jobName),
			Priority:     models.PriorityMedium,
			RootCause:    "Unknown failure",
			SuggestedFix: "Review job logs for specific error details",
			Timestamp:    logTimestamp,
		})
	}

	sortByPriority(issues)

	return Result{
		Issues:            issues,
		JobName:           jobName,
		AnalysisTimestamp: time.Now().UTC().Format(models.TimestampLayout),
	}
}

// BuildResults converts an analysis result into an AnaResults bundle,
// stamping every issue with the given failure type.
func BuildResults(res Result, typ models.FailureType) models.AnaResults {
	failures := make([]models.AnalyzedFailure, 0, len(res.Issues))
	for _, issue := range res.Issues {
		failures = append(failures, NewFailure(issue, typ))
	}
	summary := fmt.Sprintf("%s analysis found %d issues", res.JobName, len(failures))
	if len(failures) == 0 {
		summary = "No issues found"
	}
	return models.NewAnaResults(failures, summary)
}

// NewFailure converts a raw issue into an AnalyzedFailure with a generated
// ID and creation timestamp.
func NewFailure(issue RawIssue, typ models.FailureType) models.AnalyzedFailure {
	return models.NewAnalyzedFailure(models.AnalyzedFailure{
		Type:               typ,
		Content:            issue.Description,
		Priority:           issue.Priority,
		Files:              issue.Files,
		LineNumbers:        issue.LineNumbers,
		RootCause:          issue.RootCause,
		Impact:             issue.Impact,
		SuggestedFix:       issue.SuggestedFix,
		AffectedComponents: issue.AffectedComponents,
		Timestamp:          issue.Timestamp,
	})
}

// --- category recognizers ---

func analyzeTypeScriptErrors(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reTypeScript.FindAllStringSubmatch(logText, -1) {
		// Two formats: "error in file:line:col" captures 1-3,
		// "file:line:col - error TSxxxx" captures 4-6.
		file := m[1]
		lineStr := m[2]
		if file == "" {
			file = m[4]
			lineStr = m[5]
		}

		var files []string
		var lineNumbers []int
		if file != "" {
			files = []string{file}
		}
		if line, ok := parseLineNumber(lineStr); ok {
			lineNumbers = []int{line}
		}

		issues = append(issues, RawIssue{
			Description:  "TypeScript Check: " + findLineContaining(logText, m[0]),
			Priority:     models.PriorityHigh,
			Files:        files,
			LineNumbers:  lineNumbers,
			RootCause:    "TypeScript compilation error",
			SuggestedFix: GenerateSuggestedFix(m[0], "TypeScript Check", files, lineNumbers),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeTestFailures(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reTestFailure.FindAllStringSubmatch(logText, -1) {
		file := m[1]
		description := m[2]
		if description == "" {
			description = m[0]
		}

		var files []string
		content := description
		if file != "" {
			files = []string{file}
			content = file
		}

		issues = append(issues, RawIssue{
			Description:  "Unit Tests: " + content,
			Priority:     models.PriorityHigh,
			Files:        files,
			RootCause:    "Jest test failure",
			SuggestedFix: GenerateSuggestedFix(m[0], "Unit Tests", files, nil),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeLintErrors(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	seen := make(map[string]bool)

	for _, m := range reLintError.FindAllStringSubmatch(logText, -1) {
		file := m[1]
		severity := m[4]
		simpleDesc := m[5]

		// Full format: only error-severity violations, one issue per file
		// carrying the first line number found.
		if file != "" {
			if severity != "error" || seen[file] {
				continue
			}
			seen[file] = true

			var lineNumbers []int
			if line, ok := parseLineNumber(m[2]); ok {
				lineNumbers = []int{line}
			}
			issues = append(issues, RawIssue{
				Description:  "Lint: " + file,
				Priority:     models.PriorityMedium,
				Files:        []string{file},
				LineNumbers:  lineNumbers,
				RootCause:    "ESLint error",
				SuggestedFix: GenerateSuggestedFix(m[0], "Lint", []string{file}, nil),
				Timestamp:    timestamp,
			})
			continue
		}

		description := simpleDesc
		if description == "" {
			description = m[0]
		}
		issues = append(issues, RawIssue{
			Description:  "Lint: " + description,
			Priority:     models.PriorityMedium,
			RootCause:    "ESLint error",
			SuggestedFix: GenerateSuggestedFix(m[0], "Lint", nil, nil),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeBuildFailures(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reBuildFailure.FindAllStringSubmatch(logText, -1) {
		description := m[1]
		if description == "" {
			description = m[0]
		}
		issues = append(issues, RawIssue{
			Description:  "Build: " + description,
			Priority:     models.PriorityCritical,
			RootCause:    ExtractRootCause(m[0]),
			SuggestedFix: GenerateSuggestedFix(m[0], "Build", nil, nil),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeCoverageFailures(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reCoverage.FindAllStringSubmatch(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Coverage: " + m[0],
			Priority:     models.PriorityMedium,
			RootCause:    "Coverage threshold failure",
			SuggestedFix: GenerateSuggestedFix(m[0], "Coverage", nil, nil),
			Timestamp:    timestamp,
		})
	}
	return issues
}

// --- exported helpers ---

// CalculatePriority classifies error text into a priority level: critical
// for build-breaking failures, high for type/test errors, medium otherwise.
func CalculatePriority(errorContent, jobName string) models.Priority {
	content := strings.ToLower(errorContent)
	job := strings.ToLower(jobName)

	if strings.Contains(content, "build failed") ||
		strings.Contains(content, "build timed out") ||
		strings.Contains(content, "heap out of memory") ||
		strings.Contains(content, "cannot resolve module") {
		return models.PriorityCritical
	}

	if strings.Contains(content, "error ts") ||
		strings.Contains(content, "test failed") ||
		strings.Contains(content, "environment variable") ||
		strings.Contains(content, "dependency") ||
		strings.Contains(job, "typescript") ||
		strings.Contains(job, "test") {
		return models.PriorityHigh
	}

	if strings.Contains(content, "lint error") ||
		strings.Contains(content, "coverage threshold") ||
		strings.Contains(content, "warning") ||
		strings.Contains(job, "lint") {
		return models.PriorityMedium
	}

	return models.PriorityMedium
}

// ExtractRootCause maps error text to one of the fixed root-cause strings.
func ExtractRootCause(errorContent string) string {
	content := strings.ToLower(errorContent)

	if strings.Contains(content, "error in") ||
		strings.Contains(content, "error ts") ||
		strings.Contains(content, "type") {
		return "TypeScript compilation error"
	}
	if strings.Contains(content, "test failed") {
		return "Jest test failure"
	}
	if strings.Contains(content, "lint error") {
		return "ESLint error"
	}
	if strings.Contains(content, "build failed") {
		if strings.Contains(content, "module not found") ||
			strings.Contains(content, "cannot resolve") {
			return "Build failure - missing module"
		}
		return "Build failure"
	}
	if strings.Contains(content, "module not found") ||
		strings.Contains(content, "cannot resolve") {
		return "Build failure - missing module"
	}
	if strings.Contains(content, "coverage threshold") {
		return "Coverage threshold failure"
	}

	return "Unknown failure"
}

// GenerateSuggestedFix produces the category-specific fix template for an
// error, falling back to a generic review message.
func GenerateSuggestedFix(errorContent, jobName string, files []string, lineNumbers []int) string {
	content := strings.ToLower(errorContent)

	if strings.Contains(content, "error in") ||
		strings.Contains(content, "error ts") ||
		(strings.Contains(content, "type") && len(files) > 0 && len(lineNumbers) > 0) {
		if len(files) > 0 && len(lineNumbers) > 0 {
			return fmt.Sprintf("Fix type mismatch in %s at line %d", files[0], lineNumbers[0])
		}
	}

	if strings.Contains(content, "fail") && len(files) > 0 {
		return fmt.Sprintf("Fix failing test in %s", files[0])
	}

	if (strings.Contains(content, "lint error") ||
		(strings.Contains(content, "/src/") && strings.Contains(content, "error"))) && len(files) > 0 {
		return fmt.Sprintf("Fix linting issues in %s", files[0])
	}
	if jobName == "Lint" && len(files) > 0 {
		return fmt.Sprintf("Fix linting issues in %s", files[0])
	}

	if strings.Contains(content, "build failed") ||
		strings.Contains(content, "cannot resolve") ||
		strings.Contains(content, "module not found") {
		return "Check import paths and ensure all required files exist"
	}

	if strings.Contains(content, "coverage threshold") {
		return "Add tests to increase code coverage above threshold"
	}

	return "Review job logs for specific error details"
}

// --- internal helpers ---

// parseLineNumber converts a regex capture into a line number, tolerating
// malformed or missing captures.
func parseLineNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// findLineContaining returns the first full log line containing the match,
// for richer issue descriptions. Falls back to the match itself.
func findLineContaining(logText, match string) string {
	for _, line := range strings.Split(logText, "\n") {
		if strings.Contains(line, match) {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(match)
}

// sortByPriority orders issues priority-descending, preserving detection
// order within the same priority.
func sortByPriority(issues []RawIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Priority.Rank() > issues[j].Priority.Rank()
	})
}
