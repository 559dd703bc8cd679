// Package review analyzes Cursor Bugbot pull-request reviews and converts
// their inline comments into classified failure records.
package review

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/anahq/ana/pkg/models"
)

// Bugbot comment template markers.
var (
	reBugTitle     = regexp.MustCompile(`(?i)###\s+(Bug|Suggestion):\s*([^\n]+)`)
	reSeverity     = regexp.MustCompile(`(?i)<!--\s*\*\*\s*(Critical|High|Medium|Low)\s+Severity\s*\*\*\s*-->`)
	reDescription  = regexp.MustCompile(`(?is)<!--\s*DESCRIPTION\s+START\s*-->\s*(.*?)\s*<!--\s*DESCRIPTION\s+END\s*-->`)
	reSuggestedFix = regexp.MustCompile(`(?i)\*\*Suggested\s+Fix\*\*:\s*([^\n]+)`)
)

const defaultBotLogin = "cursor"

// CommentIssue is the parsed form of a single Bugbot review comment.
type CommentIssue struct {
	Title        string
	Priority     models.Priority
	Description  string
	SuggestedFix string
}

// Analyzer parses Bugbot review events. The zero value accepts reviews from
// the default "cursor" login.
type Analyzer struct {
	botLogin string
}

func NewAnalyzer(botLogin string) *Analyzer {
	if botLogin == "" {
		botLogin = defaultBotLogin
	}
	return &Analyzer{botLogin: botLogin}
}

// AnalyzeBugbotReview validates a review event and converts each inline
// comment into a failure record. Reviews from other users, or review states
// other than COMMENTED, are rejected before any comment is parsed.
func (a *Analyzer) AnalyzeBugbotReview(event models.ReviewEvent, prNumber int) (models.AnaResults, error) {
	botLogin := a.botLogin
	if botLogin == "" {
		botLogin = defaultBotLogin
	}

	if event.Review.User.Login != botLogin {
		login := event.Review.User.Login
		if login == "" {
			login = "unknown"
		}
		return models.AnaResults{}, fmt.Errorf("Review is not from Cursor bot (user: %s)", login)
	}
	if event.Review.State != "COMMENTED" {
		return models.AnaResults{}, fmt.Errorf("Review is not a comment review (state: %s)", event.Review.State)
	}

	failures := make([]models.AnalyzedFailure, 0, len(event.Comments))
	for _, comment := range event.Comments {
		issue := AnalyzeBugbotReviewComment(comment.Body)

		var files []string
		if comment.Path != "" {
			files = []string{comment.Path}
		}
		var lineNumbers []int
		if comment.Line > 0 {
			lineNumbers = []int{comment.Line}
		}

		suggestedFix := issue.SuggestedFix
		if suggestedFix == "" {
			suggestedFix = "Review and address the Cursor Bugbot feedback"
		}

		failures = append(failures, models.NewAnalyzedFailure(models.AnalyzedFailure{
			ID: fmt.Sprintf("bugbot-review-%d-comment-%d-%d",
				event.Review.ID, comment.ID, time.Now().UnixMilli()),
			Type:         models.FailureTypeBugbot,
			Content:      issue.Title,
			Priority:     issue.Priority,
			Files:        files,
			LineNumbers:  lineNumbers,
			RootCause:    issue.Description,
			Impact:       "Code quality and maintainability concerns",
			SuggestedFix: suggestedFix,
			RelatedPR:    fmt.Sprintf("#%d", prNumber),
		}))
	}

	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Priority.Rank() > failures[j].Priority.Rank()
	})

	summary := fmt.Sprintf("Cursor Bugbot review analysis found %d issues", len(failures))
	if len(failures) == 0 {
		summary = "Cursor Bugbot review analysis - No issues found"
	}

	return models.NewAnaResults(failures, summary), nil
}

// AnalyzeBugbotReviewComment parses one comment body. Bugbot comments follow
// a structured template:
//
//	### Bug: Title
//	<!-- **High Severity** -->
//	<!-- DESCRIPTION START -->
//	Description text
//	<!-- DESCRIPTION END -->
//	**Suggested Fix**: ...
//
// Unstructured comments fall back to keyword classification, with the first
// 100 characters standing in for a title and the whole body for a
// description.
func AnalyzeBugbotReviewComment(body string) CommentIssue {
	title := ""
	if m := reBugTitle.FindStringSubmatch(body); m != nil {
		title = strings.TrimSpace(m[2])
	}
	if title == "" {
		title = strings.TrimSpace(truncate(body, 100))
	}

	priority := models.PriorityMedium
	if m := reSeverity.FindStringSubmatch(body); m != nil {
		switch strings.ToLower(m[1]) {
		case "critical":
			priority = models.PriorityCritical
		case "high":
			priority = models.PriorityHigh
		case "medium":
			priority = models.PriorityMedium
		case "low":
			priority = models.PriorityLow
		}
	} else {
		priority = classifyByKeywords(body)
	}

	description := strings.TrimSpace(body)
	if m := reDescription.FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
		description = strings.TrimSpace(m[1])
	}

	suggestedFix := ""
	if m := reSuggestedFix.FindStringSubmatch(body); m != nil {
		suggestedFix = strings.TrimSpace(m[1])
	}

	return CommentIssue{
		Title:        title,
		Priority:     priority,
		Description:  description,
		SuggestedFix: suggestedFix,
	}
}

// classifyByKeywords is the severity fallback for comments without an
// explicit severity marker.
func classifyByKeywords(body string) models.Priority {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "critical"), strings.Contains(lower, "security"):
		return models.PriorityCritical
	case strings.Contains(lower, "error"), strings.Contains(lower, "bug"):
		return models.PriorityHigh
	case strings.Contains(lower, "suggestion"), strings.Contains(lower, "improvement"):
		return models.PriorityLow
	}
	return models.PriorityMedium
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
