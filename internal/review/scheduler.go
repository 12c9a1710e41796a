// Package review decides which words are due on a given day and applies the
// outcome of a delivered review session back onto the record set.
package review

import (
	"sort"
	"time"

	"github.com/example/wordpusher/pkg/models"
)

// DefaultIntervals is the fixed review curve: days to wait before the next
// review, indexed by review stage. Stages past the end reuse the last entry.
var DefaultIntervals = []int{1, 2, 4, 7, 15, 30, 60}

// DefaultBatchSize is the number of words sent per push
const DefaultBatchSize = 15

// Scheduler selects due words from a record set
type Scheduler struct {
	Intervals []int
	BatchSize int
}

// NewScheduler creates a scheduler with the default curve and batch size
func NewScheduler() *Scheduler {
	return &Scheduler{
		Intervals: DefaultIntervals,
		BatchSize: DefaultBatchSize,
	}
}

// Interval returns the review interval in days for a stage, clamped to the
// last entry of the table.
func (s *Scheduler) Interval(stage int) int {
	if stage >= len(s.Intervals) {
		stage = len(s.Intervals) - 1
	}
	if stage < 0 {
		stage = 0
	}
	return s.Intervals[stage]
}

// NextReviewDate computes when a record is due next. Not meaningful for
// stage-0 records, which are always due.
func (s *Scheduler) NextReviewDate(rec models.WordRecord) time.Time {
	return models.Midnight(rec.LastReviewed).AddDate(0, 0, s.Interval(rec.ReviewStage))
}

// Selection is the ordered batch for one push plus the positions of the
// selected records in the original record slice. Positions let the advancer
// address exactly the reviewed records without re-scanning by term.
type Selection struct {
	Words     []models.WordRecord
	Positions []int
}

type candidate struct {
	position    int
	overdueDays int
	isNew       bool
}

// Select classifies every record as new, due or not due against today and
// returns the batch. Ordering contract: new words always come first (in
// file order), then due words by most-overdue first, file order breaking
// ties. Truncated to the batch size.
func (s *Scheduler) Select(records []models.WordRecord, today time.Time) Selection {
	today = models.Midnight(today)

	var due []candidate
	for i, rec := range records {
		if rec.ReviewStage == 0 {
			due = append(due, candidate{position: i, isNew: true})
			continue
		}
		next := s.NextReviewDate(rec)
		if today.Before(next) {
			continue
		}
		overdue := int(today.Sub(next).Hours() / 24)
		due = append(due, candidate{position: i, overdueDays: overdue})
	}

	sort.SliceStable(due, func(a, b int) bool {
		ca, cb := due[a], due[b]
		if ca.isNew != cb.isNew {
			return ca.isNew
		}
		if ca.isNew {
			return ca.position < cb.position
		}
		if ca.overdueDays != cb.overdueDays {
			return ca.overdueDays > cb.overdueDays
		}
		return ca.position < cb.position
	})

	if s.BatchSize > 0 && len(due) > s.BatchSize {
		due = due[:s.BatchSize]
	}

	sel := Selection{}
	for _, c := range due {
		sel.Words = append(sel.Words, records[c.position])
		sel.Positions = append(sel.Positions, c.position)
	}
	return sel
}
