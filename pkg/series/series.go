// Package series expands multi-date event candidates into linked sessions.
// A candidate whose date field holds comma-joined timestamps becomes N
// calendar entries sharing a series ID; single-date candidates pass through
// as one session.
package series

import (
	"crypto/md5" //nolint:gosec // series IDs are correlation tags, not security material
	"fmt"
	"strings"
	"time"

	"github.com/umputun/eventscope/pkg/domain"
)

// Expand turns a candidate's date field into sessions. Session numbering is
// dense and 1-indexed regardless of gaps or duplicates in the input dates.
func Expand(candidate domain.EventCandidate, userID string, now time.Time) domain.Expansion {
	tokens := candidate.DateTokens()

	if len(tokens) <= 1 {
		date := candidate.Date
		if len(tokens) == 1 {
			date = tokens[0]
		}
		return domain.Expansion{
			DisplayTitle: candidate.Title,
			Sessions: []domain.Session{{
				Number: 1,
				Total:  1,
				Title:  candidate.Title,
				Date:   NormalizeDate(date),
			}},
		}
	}

	id := seriesID(candidate.Title, candidate.Location, userID, now)
	sessions := make([]domain.Session, 0, len(tokens))
	for i, token := range tokens {
		sessions = append(sessions, domain.Session{
			Number: i + 1,
			Total:  len(tokens),
			Title:  fmt.Sprintf("%s (Session %d of %d)", candidate.Title, i+1, len(tokens)),
			Date:   NormalizeDate(token),
		})
	}

	return domain.Expansion{
		SeriesID:     id,
		DisplayTitle: fmt.Sprintf("%s (Series of %d)", candidate.Title, len(tokens)),
		Sessions:     sessions,
	}
}

// seriesID derives a short correlation tag from the event identity and the
// expansion wall-clock second. Same-second expansions of the same event
// collide on purpose, they are retries of the same save.
func seriesID(title, location, userID string, now time.Time) string {
	content := fmt.Sprintf("%s_%s_%s_%d", title, location, userID, now.Unix())
	sum := md5.Sum([]byte(content)) //nolint:gosec // not security material
	return fmt.Sprintf("%x", sum)[:8]
}

// NormalizeDate coerces the two canonical extractor shapes into ISO 8601 for
// the persistence layer: "YYYY-MM-DD HH:MM" gains seconds, a bare date gains
// midnight. Anything else passes through untouched rather than guessing.
func NormalizeDate(date string) string {
	date = strings.TrimSpace(date)

	if len(date) == 16 && strings.Contains(date, " ") {
		return strings.Replace(date, " ", "T", 1) + ":00"
	}
	if len(date) == 10 && strings.Count(date, "-") == 2 {
		return date + "T00:00:00"
	}
	return date
}
