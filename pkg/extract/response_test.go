package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidate_CleanJSON(t *testing.T) {
	content := `{
  "event_title": "Jazz Night",
  "event_date": "2025-06-25 20:00",
  "event_location": "Blue Note",
  "event_description": "An evening of jazz",
  "parsing_confidence": 0.9
}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", c.Title)
	assert.Equal(t, "2025-06-25 20:00", c.Date)
	assert.Equal(t, "Blue Note", c.Location)
	assert.InDelta(t, 0.9, c.ParsingConfidence, 0.001)
}

func TestParseCandidate_MarkdownFenced(t *testing.T) {
	content := "Here is the extracted event:\n```json\n" +
		`{"event_title": "Workshop", "event_date": "2025-07-01 10:00", "event_location": "", "event_description": "", "parsing_confidence": 0.8}` +
		"\n```\nLet me know if you need anything else."
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.Equal(t, "Workshop", c.Title)
	assert.InDelta(t, 0.8, c.ParsingConfidence, 0.001)
}

func TestParseCandidate_TrailingCommas(t *testing.T) {
	content := `{"event_title": "Fair", "event_date": "2025-08-10", "parsing_confidence": 0.7,}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.Equal(t, "Fair", c.Title)
	assert.Equal(t, "2025-08-10", c.Date)
}

func TestParseCandidate_NullNormalization(t *testing.T) {
	content := `{"event_title": "Show", "event_date": null, "event_location": "null", "event_description": "x", "parsing_confidence": 0.6}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.Equal(t, "Show", c.Title)
	assert.Empty(t, c.Date, "json null becomes empty string")
	assert.Empty(t, c.Location, "quoted null string becomes empty string")
}

func TestParseCandidate_AlternateKeys(t *testing.T) {
	content := `{"title": "Meetup", "date": "2025-06-24 18:00", "location": "Hall", "description": "monthly", "confidence": 0.85}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.Equal(t, "Meetup", c.Title)
	assert.Equal(t, "2025-06-24 18:00", c.Date)
	assert.InDelta(t, 0.85, c.ParsingConfidence, 0.001)
}

func TestParseCandidate_ConfidenceClamped(t *testing.T) {
	content := `{"event_title": "X", "parsing_confidence": 1.7}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.ParsingConfidence, 0.001)
}

func TestParseCandidate_MissingConfidence(t *testing.T) {
	content := `{"event_title": "Y", "event_date": "2025-06-24 18:00"}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c.ParsingConfidence, 0.001, "omitted score assumed middling")
}

func TestParseCandidate_NoJSON(t *testing.T) {
	_, err := parseCandidate("I could not find any event information in this text.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no json object")
}

func TestParseCandidate_MultiDate(t *testing.T) {
	content := `{"event_title": "Series", "event_date": "2025-06-24 14:00, 2025-06-26 14:00, 2025-06-28 14:00", "parsing_confidence": 0.9}`
	c, err := parseCandidate(content)
	require.NoError(t, err)
	assert.True(t, c.HasMultipleDates())
	assert.Len(t, c.DateTokens(), 3)
}
