package review

import (
	"time"

	"github.com/example/wordpusher/pkg/models"
)

// Advance applies a completed review session to the record set: for exactly
// the given positions the last-reviewed date becomes today and the stage
// goes up by one. Every other record is left untouched. Returns how many
// records were advanced.
//
// Callers must only invoke this after the batch was confirmed delivered;
// advancing first would lose words the reader never saw. The inverse risk
// (crash after delivery, before persist) re-delivers the same batch next
// run, which is the intended at-least-once behavior.
func Advance(records []models.WordRecord, positions []int, today time.Time) int {
	today = models.Midnight(today)
	advanced := 0
	for _, pos := range positions {
		if pos < 0 || pos >= len(records) {
			continue
		}
		records[pos].LastReviewed = today
		records[pos].ReviewStage++
		advanced++
	}
	return advanced
}
