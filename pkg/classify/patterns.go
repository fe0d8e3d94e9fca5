package classify

import "regexp"

// tier-1 URL patterns, tested in order of specificity
var (
	reURLScheme = regexp.MustCompile(`(?i)^https?://\S+$`)
	reURLWWW    = regexp.MustCompile(`(?i)^www\.\S+\.[a-z]{2,}`)
	reURLDomain = regexp.MustCompile(`^[a-zA-Z0-9-]+\.[a-z]{2,}(/.*)?$`)
)

// tier-1 email patterns
var (
	reEmailExact  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	reEmailInText = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

// event-related text pattern families; classification as event text requires
// matches from at least two of the three
var (
	reEventKeywords = regexp.MustCompile(`(?i)\b(event|concert|show|performance|workshop|seminar|meeting|conference|` +
		`festival|party|gathering|class|lesson|tour|exhibition|presentation)\b`)
	reDateTime = regexp.MustCompile(`(?i)\b(today|tomorrow|tonight|this\s+(weekend|week|month)|` +
		`(monday|tuesday|wednesday|thursday|friday|saturday|sunday)|` +
		`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|` +
		`(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}|` +
		`\d{1,2}(am|pm|:\d{2}))\b`)
	reLocation = regexp.MustCompile(`(?i)\b(at|@|in|on|near|downtown|uptown|venue|location|address|street|ave|avenue|blvd|boulevard|rd|road)\b`)
)

// isURL reports whether the trimmed input looks like a URL
func isURL(s string) bool {
	return reURLScheme.MatchString(s) || reURLWWW.MatchString(s) || reURLDomain.MatchString(s)
}

// isEmail reports whether the trimmed input looks like an email address
func isEmail(s string) bool {
	return reEmailExact.MatchString(s) || reEmailInText.MatchString(s)
}

// eventPatternCount counts how many of the three event text pattern families match
func eventPatternCount(s string) int {
	count := 0
	if reEventKeywords.MatchString(s) {
		count++
	}
	if reDateTime.MatchString(s) {
		count++
	}
	if reLocation.MatchString(s) {
		count++
	}
	return count
}

// urlConfidence scores a URL match by specificity
func urlConfidence(s string) float64 {
	switch {
	case reURLScheme.MatchString(s):
		return 0.95
	case reURLWWW.MatchString(s):
		return 0.90
	case reURLDomain.MatchString(s):
		return 0.85
	}
	return 0
}

// emailConfidence scores an email match, exact matches score higher than embedded ones
func emailConfidence(s string) float64 {
	switch {
	case reEmailExact.MatchString(s):
		return 0.95
	case reEmailInText.MatchString(s):
		return 0.80
	}
	return 0
}

// textConfidence scores event-like text by pattern family coverage
func textConfidence(s string) float64 {
	return 0.6 + float64(eventPatternCount(s))/3.0*0.3
}

// FirstDateToken returns the first date/time token found in text, empty if none.
// Used by the fallback extractor when LLM parsing fails.
func FirstDateToken(s string) string {
	return reDateTime.FindString(s)
}

// FirstLocationMatch returns the match range of the first location indicator,
// ok is false when nothing matches
func FirstLocationMatch(s string) (start, end int, ok bool) {
	loc := reLocation.FindStringIndex(s)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}
