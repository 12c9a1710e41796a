package models

import "time"

// DateLayout is the on-disk date format for word records
const DateLayout = "2006-01-02"

// WordRecord represents one vocabulary entry in the flat word file
type WordRecord struct {
	Term         string    `json:"term"`
	Definition   string    `json:"definition"`
	AddedDate    time.Time `json:"added_date"`
	LastReviewed time.Time `json:"last_reviewed"`
	// ReviewStage counts completed reviews; 0 means the word is new
	ReviewStage int `json:"review_stage"`
}

// NewWordRecord creates a record for a freshly added word. The last-reviewed
// date starts equal to the added date and the stage starts at 0.
func NewWordRecord(term, definition string, added time.Time) WordRecord {
	day := Midnight(added)
	return WordRecord{
		Term:         term,
		Definition:   definition,
		AddedDate:    day,
		LastReviewed: day,
		ReviewStage:  0,
	}
}

// Midnight truncates a timestamp to its calendar date in UTC
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
