package session

import (
	"regexp"
	"strings"
)

// ResponseKind classifies a user's reply to a confirmation prompt
type ResponseKind string

// response kinds
const (
	ResponseConfirm ResponseKind = "confirm"
	ResponseCancel  ResponseKind = "cancel"
	ResponseEdit    ResponseKind = "edit"
	ResponseUnknown ResponseKind = "unknown"
)

// Response is a parsed confirmation reply. Field and Value are set for edits.
type Response struct {
	Kind  ResponseKind
	Field string
	Value string
}

var positiveResponses = []string{
	"yes", "y", "confirm", "ok", "okay", "correct", "right", "good",
	"approve", "accept", "proceed", "save", "looks good", "perfect",
	"✅", "true", "1", "affirmative", "yep", "yeah", "yup",
}

var negativeResponses = []string{
	"no", "n", "cancel", "stop", "abort", "wrong", "incorrect", "bad",
	"reject", "decline", "dismiss", "nevermind", "never mind",
	"❌", "false", "0", "negative", "nope", "nah",
}

// editable candidate fields
var editableFields = map[string]bool{
	"title": true, "date": true, "location": true, "description": true,
}

// edits look like "edit date: 2025-07-01" or just "date: 2025-07-01"
var reEdit = regexp.MustCompile(`(?i)^(?:edit\s+)?([a-z]+)\s*:\s*(.+)$`)

// ParseResponse interprets a reply to a confirmation prompt
func ParseResponse(text string) Response {
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, p := range positiveResponses {
		if normalized == p {
			return Response{Kind: ResponseConfirm}
		}
	}
	for _, n := range negativeResponses {
		if normalized == n {
			return Response{Kind: ResponseCancel}
		}
	}

	if m := reEdit.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		field := strings.ToLower(m[1])
		if editableFields[field] {
			return Response{Kind: ResponseEdit, Field: field, Value: strings.TrimSpace(m[2])}
		}
	}

	return Response{Kind: ResponseUnknown}
}

// IsConfirmationResponse reports whether text looks like a reply to a
// confirmation prompt rather than new input
func IsConfirmationResponse(text string) bool {
	return ParseResponse(text).Kind != ResponseUnknown
}
