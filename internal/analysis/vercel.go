package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/anahq/ana/pkg/models"
)

// AnalyzeVercelDeploymentLogs extracts failure issues from Vercel deployment
// log text. Like AnalyzeJobLogs it never fails and always returns at least
// one issue. Memory, database and dependency categories only report their
// first occurrence since those errors repeat for every affected chunk.
func AnalyzeVercelDeploymentLogs(jobName, logText string) Result {
	logTimestamp := models.ExtractTimestamp(logText)

	var issues []RawIssue
	issues = append(issues, analyzeVercelBuildTimeouts(logText, logTimestamp)...)
	issues = append(issues, firstOnly(analyzeVercelMemoryLimits(logText, logTimestamp))...)
	issues = append(issues, analyzeVercelMissingModules(logText, logTimestamp)...)
	issues = append(issues, firstOnly(analyzeVercelDatabaseErrors(logText, logTimestamp))...)
	issues = append(issues, analyzeVercelEnvVarIssues(logText, logTimestamp)...)
	issues = append(issues, analyzeTypeScriptErrors(logText, logTimestamp)...)
	issues = append(issues, analyzeVercelFunctionSizeLimits(logText, logTimestamp)...)
	issues = append(issues, firstOnly(analyzeVercelDependencyIssues(logText, logTimestamp))...)
	issues = append(issues, analyzeVercelStaticGenerationErrors(logText, logTimestamp)...)
	issues = append(issues, analyzeVercelEdgeRuntimeErrors(logText, logTimestamp)...)

	if len(issues) == 0 {
		issues = append(issues, vercelFallbackIssue(jobName, logText, logTimestamp))
	}

	sortByPriority(issues)

	return Result{
		Issues:            issues,
		JobName:           jobName,
		AnalysisTimestamp: time.Now().UTC().Format(models.TimestampLayout),
	}
}

// vercelFallbackIssue builds the generic issue for logs matching no known
// pattern, pulling error context out of the log when available.
func vercelFallbackIssue(jobName, logText, timestamp string) RawIssue {
	description := fmt.Sprintf("%s failed - check logs for details", jobName)
	if m := reVercelBuildFailedTo.FindStringSubmatch(logText); m != nil {
		description = fmt.Sprintf("%s: Build failed for %s", jobName, m[1])
	} else if m := reVercelGenericError.FindStringSubmatch(logText); m != nil {
		description = fmt.Sprintf("%s: %s", jobName, m[1])
	}

	return RawIssue{
		Description:  description,
		Priority:     models.PriorityMedium,
		RootCause:    "Unknown Vercel deployment failure",
		SuggestedFix: "Review Vercel deployment logs for specific error details",
		Timestamp:    timestamp,
	}
}

func firstOnly(issues []RawIssue) []RawIssue {
	if len(issues) > 1 {
		return issues[:1]
	}
	return issues
}

// --- category recognizers ---

func analyzeVercelBuildTimeouts(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelBuildTimeout.FindAllString(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: " + strings.ToLower(m),
			Priority:     models.PriorityCritical,
			RootCause:    "Vercel build timeout",
			SuggestedFix: GenerateVercelSuggestedFix(m),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelMemoryLimits(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelMemoryLimit.FindAllString(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: " + m,
			Priority:     models.PriorityCritical,
			RootCause:    "Memory limit exceeded",
			SuggestedFix: GenerateVercelSuggestedFix(m),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelEnvVarIssues(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelEnvVarMissing.FindAllStringSubmatch(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: " + m[0],
			Priority:     models.PriorityHigh,
			RootCause:    "Missing environment variable",
			SuggestedFix: GenerateVercelSuggestedFix(m[0]),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelDependencyIssues(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelDependencyError.FindAllString(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: dependency installation failed - " + m,
			Priority:     models.PriorityHigh,
			RootCause:    "Dependency resolution conflict",
			SuggestedFix: GenerateVercelSuggestedFix(m),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelFunctionSizeLimits(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelFunctionSize.FindAllString(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: " + m,
			Priority:     models.PriorityHigh,
			RootCause:    "Serverless function size limit exceeded",
			SuggestedFix: GenerateVercelSuggestedFix(m),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelStaticGenerationErrors(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelStaticGeneration.FindAllStringSubmatch(logText, -1) {
		page := m[1]
		if page == "" {
			page = "page"
		}
		issues = append(issues, RawIssue{
			Description:  fmt.Sprintf("Vercel Deploy: Error occurred prerendering page %q", page),
			Priority:     models.PriorityHigh,
			RootCause:    "Static page generation failure",
			SuggestedFix: fmt.Sprintf("Fix getStaticProps error in %s page", page),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelEdgeRuntimeErrors(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelEdgeRuntime.FindAllString(logText, -1) {
		var files []string
		if fm := reVercelEdgeUsedIn.FindStringSubmatch(logText); fm != nil {
			files = []string{fm[1]}
		}
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: " + m,
			Priority:     models.PriorityHigh,
			Files:        files,
			RootCause:    "Edge Runtime compatibility issue",
			SuggestedFix: GenerateVercelSuggestedFix(m),
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelMissingModules(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelMissingModule.FindAllStringSubmatch(logText, -1) {
		missingModule := m[1]
		fromFile := m[2]
		if missingModule == "" || fromFile == "" {
			continue
		}
		issues = append(issues, RawIssue{
			Description:  fmt.Sprintf("Vercel Deploy: Cannot resolve module '%s' from '%s'", missingModule, fromFile),
			Priority:     models.PriorityCritical,
			Files:        []string{fromFile},
			RootCause:    "Next.js build failure - missing module",
			SuggestedFix: "Check import paths and ensure all required components exist",
			Timestamp:    timestamp,
		})
	}
	return issues
}

func analyzeVercelDatabaseErrors(logText, timestamp string) []RawIssue {
	var issues []RawIssue
	for _, m := range reVercelDatabase.FindAllString(logText, -1) {
		issues = append(issues, RawIssue{
			Description:  "Vercel Deploy: database connection failed - " + m,
			Priority:     models.PriorityHigh,
			RootCause:    "Database connection failure",
			SuggestedFix: "Configure database connection for build environment",
			Timestamp:    timestamp,
		})
	}
	return issues
}

// --- exported helpers ---

// CalculateVercelPriority classifies Vercel deployment error text.
func CalculateVercelPriority(errorContent string) models.Priority {
	content := strings.ToLower(errorContent)

	if strings.Contains(content, "build timed out") ||
		strings.Contains(content, "heap out of memory") ||
		strings.Contains(content, "deployment failed") {
		return models.PriorityCritical
	}

	if strings.Contains(content, "environment variable") ||
		strings.Contains(content, "npm err") ||
		strings.Contains(content, "exceeds the maximum size limit") ||
		strings.Contains(content, "prerendering") ||
		strings.Contains(content, "edge runtime") {
		return models.PriorityHigh
	}

	return models.PriorityMedium
}

// ExtractVercelRootCause maps Vercel error text to a fixed root cause.
func ExtractVercelRootCause(errorContent string) string {
	content := strings.ToLower(errorContent)

	switch {
	case strings.Contains(content, "build timed out"):
		return "Vercel build timeout"
	case strings.Contains(content, "heap out of memory"):
		return "Memory limit exceeded"
	case strings.Contains(content, "environment variable"):
		return "Missing environment variable"
	case strings.Contains(content, "npm err"), strings.Contains(content, "dependency"):
		return "Dependency resolution conflict"
	case strings.Contains(content, "exceeds the maximum size limit"):
		return "Serverless function size limit exceeded"
	case strings.Contains(content, "prerendering"):
		return "Static page generation failure"
	case strings.Contains(content, "database"), strings.Contains(content, "prisma"):
		return "Database connection failure"
	case strings.Contains(content, "edge runtime"):
		return "Edge Runtime compatibility issue"
	}
	return "Unknown Vercel deployment failure"
}

// GenerateVercelSuggestedFix produces the deployment-specific fix template.
func GenerateVercelSuggestedFix(errorContent string) string {
	content := strings.ToLower(errorContent)

	if strings.Contains(content, "build timed out") {
		return "Optimize build process to complete within time limit, consider build caching"
	}
	if strings.Contains(content, "heap out of memory") ||
		strings.Contains(content, "process ran out of memory") {
		return "Reduce memory usage during build, optimize large dependencies"
	}
	if strings.Contains(content, "environment variable") {
		varName := "VARIABLE_NAME"
		if m := reVercelEnvVarName.FindStringSubmatch(errorContent); m != nil {
			varName = m[1]
		}
		return fmt.Sprintf("Add %s environment variable in Vercel dashboard", varName)
	}
	if strings.Contains(content, "npm err") || strings.Contains(content, "dependency") {
		return "Fix peer dependency conflicts, update package versions"
	}
	if strings.Contains(content, "exceeds the maximum size limit") ||
		strings.Contains(content, "exceeds the limit") {
		return "Reduce function bundle size or use Edge Runtime"
	}
	if strings.Contains(content, "edge runtime") {
		return "Replace Node.js modules with Edge Runtime compatible alternatives"
	}
	if strings.Contains(content, "cannot resolve module") {
		return "Check import paths and ensure all required components exist"
	}
	if strings.Contains(content, "database") || strings.Contains(content, "prisma") {
		return "Configure database connection for build environment"
	}

	return "Review Vercel deployment logs for specific error details"
}
