// Package gate decides whether an extracted event can be saved automatically
// or has to be confirmed by the user first. The decision is a pure function
// of the extraction outcome, the same inputs always gate the same way.
package gate

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/ocr"
)

// confirmation thresholds
const (
	minOCRConfidence     = 80.0
	minParsingConfidence = 0.7
	minValidationScore   = 0.6
)

// descriptions mentioning any of these ask for confirmation, the extractor
// reduces recurring patterns to a start date and the user should verify that
var recurringKeywords = []string{"every", "weekly", "daily", "recurring", "series"}

// strips any markup an extracted field may carry before it goes into a
// user-facing message
var sanitizer = bluemonday.StrictPolicy()

// Decide evaluates confirmation triggers for one extracted candidate.
// ocrResult is nil for non-image inputs. Multi-date candidates always gate.
func Decide(candidate domain.EventCandidate, validationScore float64, ocrResult *ocr.Result) domain.GateDecision {
	var reasons []domain.GateReason

	if ocrResult != nil && ocrResult.Confidence < minOCRConfidence {
		reasons = append(reasons, domain.ReasonLowOCRConfidence)
	}
	if candidate.ParsingConfidence < minParsingConfidence {
		reasons = append(reasons, domain.ReasonLowParsingConfidence)
	}
	if validationScore < minValidationScore {
		reasons = append(reasons, domain.ReasonIncompleteEventData)
	}
	if candidate.HasMultipleDates() {
		reasons = append(reasons, domain.ReasonMultipleDates)
	}
	if hasRecurringKeyword(candidate.Description) {
		reasons = append(reasons, domain.ReasonRecurringPattern)
	}

	decision := domain.GateDecision{
		ConfirmationRequired: len(reasons) > 0,
		Reasons:              reasons,
	}
	if decision.ConfirmationRequired {
		decision.Message = renderMessage(candidate, decision)
	}
	return decision
}

func hasRecurringKeyword(description string) bool {
	lower := strings.ToLower(description)
	for _, kw := range recurringKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// renderMessage builds the user-facing confirmation prompt. Extracted fields
// are sanitized, they may carry markup from scraped pages or model output.
func renderMessage(candidate domain.EventCandidate, decision domain.GateDecision) string {
	title := fieldOrDefault(candidate.Title, "Event")
	date := fieldOrDefault(candidate.Date, "Date TBD")
	location := fieldOrDefault(candidate.Location, "Location TBD")

	var sb strings.Builder
	sb.WriteString("📋 *Please confirm the event details I extracted:*\n\n")
	fmt.Fprintf(&sb, "*Title:* %s\n", title)
	fmt.Fprintf(&sb, "*Date(s):* %s\n", date)
	fmt.Fprintf(&sb, "*Location:* %s\n", location)

	if desc := strings.TrimSpace(sanitizer.Sanitize(candidate.Description)); desc != "" {
		suffix := ""
		if len(desc) > 200 {
			desc = desc[:200]
			suffix = "..."
		}
		fmt.Fprintf(&sb, "*Description:* %s%s\n", desc, suffix)
	}
	sb.WriteString("\n")

	if decision.HasReason(domain.ReasonMultipleDates) {
		sb.WriteString("⚠️ I detected multiple dates. Please verify these are correct.\n")
	}
	if decision.HasReason(domain.ReasonRecurringPattern) {
		sb.WriteString("🔄 This appears to be a recurring event. Please confirm the pattern.\n")
	}
	if decision.HasReason(domain.ReasonLowOCRConfidence) {
		sb.WriteString("👀 The image text was a bit unclear. Please double-check the details.\n")
	}

	sb.WriteString("\n*Reply with:*\n")
	sb.WriteString("✅ 'Yes' or 'Confirm' to save as-is\n")
	sb.WriteString("✏️ 'Edit [field]: [new value]' to make changes\n")
	sb.WriteString("❌ 'Cancel' to discard\n")
	return sb.String()
}

func fieldOrDefault(value, def string) string {
	if v := strings.TrimSpace(sanitizer.Sanitize(value)); v != "" {
		return v
	}
	return def
}
