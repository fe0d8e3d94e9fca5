package series

import (
	"crypto/md5"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/eventscope/pkg/domain"
)

func TestExpand_SingleDate(t *testing.T) {
	candidate := domain.EventCandidate{Title: "Jazz Night", Date: "2025-06-24 20:00", Location: "Blue Note"}
	exp := Expand(candidate, "u1", time.Now())

	assert.False(t, exp.IsSeries())
	assert.Empty(t, exp.SeriesID)
	assert.Equal(t, "Jazz Night", exp.DisplayTitle)
	require.Len(t, exp.Sessions, 1)
	assert.Equal(t, 1, exp.Sessions[0].Number)
	assert.Equal(t, 1, exp.Sessions[0].Total)
	assert.Equal(t, "Jazz Night", exp.Sessions[0].Title)
	assert.Equal(t, "2025-06-24T20:00:00", exp.Sessions[0].Date)
}

func TestExpand_MultiDate(t *testing.T) {
	candidate := domain.EventCandidate{
		Title:    "Brawling on Stage",
		Date:     "2025-06-24 14:00, 2025-06-26 14:00, 2025-06-28 14:00",
		Location: "Armory",
	}
	exp := Expand(candidate, "u1", time.Now())

	assert.True(t, exp.IsSeries())
	assert.Len(t, exp.SeriesID, 8)
	assert.Equal(t, "Brawling on Stage (Series of 3)", exp.DisplayTitle)
	require.Len(t, exp.Sessions, 3)

	for i, s := range exp.Sessions {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, fmt.Sprintf("Brawling on Stage (Session %d of 3)", i+1), s.Title)
	}
	assert.Equal(t, "2025-06-24T14:00:00", exp.Sessions[0].Date)
	assert.Equal(t, "2025-06-26T14:00:00", exp.Sessions[1].Date)
	assert.Equal(t, "2025-06-28T14:00:00", exp.Sessions[2].Date)
}

func TestExpand_SeriesIDDerivation(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	candidate := domain.EventCandidate{Title: "Workshop", Date: "2025-07-01, 2025-07-02", Location: "Hall"}

	exp := Expand(candidate, "user-9", now)

	content := fmt.Sprintf("Workshop_Hall_user-9_%d", now.Unix())
	want := fmt.Sprintf("%x", md5.Sum([]byte(content)))[:8]
	assert.Equal(t, want, exp.SeriesID)

	// same event expanded at the same second yields the same series id
	again := Expand(candidate, "user-9", now)
	assert.Equal(t, exp.SeriesID, again.SeriesID)

	// a different second yields a different id
	later := Expand(candidate, "user-9", now.Add(time.Second))
	assert.NotEqual(t, exp.SeriesID, later.SeriesID)
}

func TestExpand_MessyTokens(t *testing.T) {
	candidate := domain.EventCandidate{Title: "X", Date: " 2025-07-01 , , 2025-07-02 "}
	exp := Expand(candidate, "u", time.Now())

	require.Len(t, exp.Sessions, 2, "empty tokens dropped, numbering stays dense")
	assert.Equal(t, 1, exp.Sessions[0].Number)
	assert.Equal(t, 2, exp.Sessions[1].Number)
}

func TestExpand_EmptyDate(t *testing.T) {
	candidate := domain.EventCandidate{Title: "Dateless"}
	exp := Expand(candidate, "u", time.Now())

	require.Len(t, exp.Sessions, 1)
	assert.Empty(t, exp.Sessions[0].Date)
	assert.False(t, exp.IsSeries())
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"2025-06-24 14:00", "2025-06-24T14:00:00"},
		{"2025-06-24", "2025-06-24T00:00:00"},
		{"2025-06-24T14:00:00", "2025-06-24T14:00:00"}, // already ISO, untouched
		{"June 24 at 2PM", "June 24 at 2PM"},           // unrecognized, passthrough
		{"  2025-06-24  ", "2025-06-24T00:00:00"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, NormalizeDate(tt.in), tt.in)
	}
}
