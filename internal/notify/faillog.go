package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/example/wordpusher/pkg/models"
)

// FailLogSuffix replaces the store file's extension to form the failure
// log path, e.g. words.csv -> words_failed_notifications.log
const FailLogSuffix = "_failed_notifications.log"

// appendFailureLog records an undeliverable batch for manual recovery.
// Each batch is delimited by a timestamped banner so the log stays readable
// after many failures.
func appendFailureLog(path string, batch []models.WordRecord, now time.Time) error {
	if path == "" {
		return fmt.Errorf("no failure log path configured")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open failure log: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "\n--- %s ---\n", now.Format(time.RFC3339))
	for _, rec := range batch {
		fmt.Fprintf(f, "%s: %s\n", rec.Term, rec.Definition)
	}
	fmt.Fprintln(f, "--- End ---")
	return nil
}
