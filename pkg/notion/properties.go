package notion

import (
	"fmt"
	"strings"

	"github.com/umputun/eventscope/pkg/domain"
)

// buildProperties maps one session of a candidate to the database schema.
// Optional fields are omitted rather than sent empty, the database treats a
// missing property as unset.
func (c *Client) buildProperties(candidate domain.EventCandidate, session domain.Session, seriesID string) map[string]interface{} {
	props := map[string]interface{}{}

	title := session.Title
	if title == "" {
		title = fallbackTitle(candidate)
	}
	props["Title"] = map[string]interface{}{
		"title": []interface{}{richText(title)},
	}

	if session.Date != "" {
		props["Date/Time"] = map[string]interface{}{
			"date": map[string]string{"start": session.Date},
		}
	}

	if candidate.Location != "" {
		props["Location"] = map[string]interface{}{
			"rich_text": []interface{}{richText(candidate.Location)},
		}
	}

	description := candidate.Description
	if description == "" {
		description = candidate.RawInput
	}
	if description != "" {
		props["Description"] = map[string]interface{}{
			"rich_text": []interface{}{richText(description)},
		}
	}

	if candidate.Source != "" {
		props["Source"] = map[string]interface{}{
			"select": map[string]string{"name": candidate.Source},
		}
	}

	if candidate.InputType == domain.InputURL && isHTTPURL(candidate.RawInput) {
		props["URL"] = map[string]interface{}{"url": candidate.RawInput}
	}

	if candidate.InputType != "" {
		props["Classification"] = map[string]interface{}{
			"select": map[string]string{"name": string(candidate.InputType)},
		}
	}

	props["Status"] = map[string]interface{}{
		"select": map[string]string{"name": "new"},
	}

	if candidate.UserID != "" {
		props["UserId"] = map[string]interface{}{
			"rich_text": []interface{}{richText(candidate.UserID)},
		}
	}

	props["Added"] = map[string]interface{}{
		"date": map[string]string{"start": c.now().Format("2006-01-02T15:04:05-07:00")},
	}

	if seriesID != "" {
		props["Series ID"] = map[string]interface{}{
			"rich_text": []interface{}{richText(seriesID)},
		}
		props["Session Number"] = map[string]interface{}{"number": session.Number}
		props["Total Sessions"] = map[string]interface{}{"number": session.Total}
	}

	return props
}

func richText(content string) map[string]interface{} {
	return map[string]interface{}{
		"type": "text",
		"text": map[string]string{"content": content},
	}
}

// fallbackTitle produces a usable title for candidates the extractor left
// untitled
func fallbackTitle(candidate domain.EventCandidate) string {
	switch candidate.InputType {
	case domain.InputURL:
		raw := candidate.RawInput
		if len(raw) > 50 {
			raw = raw[:50]
		}
		return fmt.Sprintf("URL: %s...", raw)
	case domain.InputImage:
		return fmt.Sprintf("Image from %s", candidate.Source)
	case domain.InputText:
		if len(candidate.RawInput) > 50 {
			return candidate.RawInput[:50] + "..."
		}
		return candidate.RawInput
	default:
		return fmt.Sprintf("%s from %s", capitalize(string(candidate.InputType)), candidate.Source)
	}
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
