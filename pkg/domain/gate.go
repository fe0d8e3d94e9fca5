package domain

// GateReason explains why a confirmation is required
type GateReason string

// gate trigger reasons
const (
	ReasonLowOCRConfidence     GateReason = "low_ocr_confidence"
	ReasonLowParsingConfidence GateReason = "low_parsing_confidence"
	ReasonIncompleteEventData  GateReason = "incomplete_event_data"
	ReasonMultipleDates        GateReason = "multiple_dates_detected"
	ReasonRecurringPattern     GateReason = "recurring_pattern_detected"
)

// GateDecision is the confirmation gate verdict for one extraction
type GateDecision struct {
	ConfirmationRequired bool
	Reasons              []GateReason
	Message              string // rendered confirmation prompt, only when required
}

// HasReason reports whether the decision carries the given trigger
func (d GateDecision) HasReason(r GateReason) bool {
	for _, have := range d.Reasons {
		if have == r {
			return true
		}
	}
	return false
}

// SaveResult reports the outcome of persisting an event, single session or
// a whole series. For series saves the first created page is the primary
// reference and the full lists are carried alongside.
type SaveResult struct {
	PageID string
	URL    string

	SeriesID        string
	TotalSessions   int
	CreatedSessions int
	AllPageIDs      []string
	AllURLs         []string

	Title string // display title, "(Series of N)" suffixed for series
}
