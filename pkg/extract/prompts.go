package extract

import (
	"fmt"
	"strings"
)

// pageBodyPromptLimit caps how much of the page body goes into the prompt;
// the fetcher already caps the body, this is a second, tighter bound
const pageBodyPromptLimit = 3000

// dateRules are shared by every prompt variant: exactly one date unless the
// input genuinely states multiple occurrences, comma-joined timestamps for
// multi-date events, and recurring patterns reduced to their start date
const dateRules = `MULTI-DATE EXTRACTION RULES:
- If the input EXPLICITLY lists multiple dates (like "June 24, June 26, and June 28"), extract ALL dates
- Format each date as YYYY-MM-DD HH:MM and separate with commas
- Use the same time for all dates if only one time is specified
- For RECURRING patterns (every X, weekly, daily for N weeks), extract ONLY the START date
- If you detect a recurring pattern, describe it in event_description; event_date still holds only the start
- Only extract dates for the ACTUAL event, NOT mentioned dates like "rescheduled from" or "originally planned for"

Examples:
  * "June 24, 26, 28 at 2PM" -> "2025-06-24 14:00, 2025-06-26 14:00, 2025-06-28 14:00"
  * "Workshop on June 15 and June 17 at 10AM" -> "2025-06-15 10:00, 2025-06-17 10:00"
  * "Meeting every Tuesday for 3 weeks starting June 24" -> "2025-06-24 00:00" (recurring)
  * "Daily sessions June 24-27" -> "2025-06-24 00:00, 2025-06-25 00:00, 2025-06-26 00:00, 2025-06-27 00:00"`

// responseSchema describes the expected JSON reply
const responseSchema = `Return ONLY a JSON object with these fields (use empty string for missing information):
{
  "event_title": "name/title of the event",
  "event_date": "YYYY-MM-DD HH:MM format, comma-separated when genuinely multiple",
  "event_location": "venue/location",
  "event_description": "brief description",
  "parsing_confidence": 0.8
}

Set parsing_confidence between 0 and 1 based on:
- 0.9-1.0: clear event with specific date/time/location
- 0.7-0.8: event details present but some info missing
- 0.5-0.6: possible event but unclear details
- 0.1-0.4: no clear event information`

// buildPrompt renders the prompt for the requested variant, embedding the
// current date so relative dates like "this Saturday" resolve correctly
func (e *Extractor) buildPrompt(req Request) string {
	now := e.now().In(e.loc)
	dateContext := fmt.Sprintf(`IMPORTANT DATE CONTEXT:
- Current date: %s (%s)
- Current year: %d
- When parsing dates without explicit years, assume the current year %d
- For dates that appear past but likely refer to future events, use %d`,
		now.Format("2006-01-02"), now.Weekday(), now.Year(), now.Year(), now.Year())

	var sb strings.Builder

	switch req.Kind {
	case KindOCR:
		sb.WriteString("This text was extracted from an image using OCR and may contain errors or formatting issues.\n")
		sb.WriteString("Extract event information from it.\n\n")
		sb.WriteString(responseSchema)
		sb.WriteString("\nAdditionally include:\n")
		sb.WriteString(`  "ocr_corrections": ["list of any obvious OCR errors you corrected"]`)
		sb.WriteString("\n\nIMPORTANT OCR CONTEXT:\n")
		sb.WriteString("- Common OCR mistakes: O/0, I/1/l, rn/m; be flexible with spelling and formatting\n")
		sb.WriteString("- Separate the EVENT TITLE (e.g. \"5th Annual X Fest\") from performer or attendee names;\n")
		sb.WriteString("  performer and attendee names belong in event_description, never in event_title\n\n")
	case KindPage:
		sb.WriteString("Extract event details from this webpage content. Look for event announcements, listings,\n")
		sb.WriteString("concert/show listings, meetups, workshops, classes, conferences, or parties.\n\n")
		sb.WriteString(responseSchema)
		sb.WriteString("\n\n")
	default: // KindText
		sb.WriteString("Extract event information from the following text.\n\n")
		sb.WriteString(responseSchema)
		sb.WriteString("\n\n")
	}

	sb.WriteString(dateContext)
	sb.WriteString("\n\n")
	sb.WriteString(dateRules)
	sb.WriteString("\n\n")

	switch req.Kind {
	case KindPage:
		sb.WriteString("Page Title: ")
		sb.WriteString(req.PageTitle)
		sb.WriteString("\n\nWebpage Content:\n")
		sb.WriteString(truncate(req.Text, pageBodyPromptLimit))
	case KindOCR:
		sb.WriteString("OCR-extracted text to parse:\n")
		sb.WriteString(req.Text)
	default:
		sb.WriteString("Text to parse:\n")
		sb.WriteString(req.Text)
	}

	sb.WriteString("\n\nJSON:")
	return sb.String()
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
