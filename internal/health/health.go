// Package health runs self-diagnostics over the word store and the push
// endpoint and renders a small report.
package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/pkg/models"
)

// Status of one check
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one diagnostic result
type Check struct {
	Name    string
	Status  Status
	Details string
}

// Report is the full diagnostic run
type Report struct {
	Checks []Check
	When   time.Time
}

// Healthy reports whether no check failed (warnings are tolerated)
func (r *Report) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Render writes the report as plain text
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "health report %s\n", r.When.Format(time.RFC3339))
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "  [%-4s] %-16s %s\n", c.Status, c.Name, c.Details)
	}
	return b.String()
}

// Checker runs the diagnostics
type Checker struct {
	Store     *store.Store
	ServerURL string
	Client    *http.Client
}

// NewChecker creates a checker for the given store and push server
func NewChecker(st *store.Store, serverURL string) *Checker {
	return &Checker{
		Store:     st,
		ServerURL: serverURL,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Run executes every check and never returns an error; problems show up as
// failed checks in the report.
func (c *Checker) Run(ctx context.Context) *Report {
	report := &Report{When: time.Now()}
	report.Checks = append(report.Checks, c.checkFiles())
	report.Checks = append(report.Checks, c.checkIntegrity())
	report.Checks = append(report.Checks, c.checkNetwork(ctx))
	return report
}

// checkFiles verifies the store file exists and is writable, and warns on a
// stale backup.
func (c *Checker) checkFiles() Check {
	path := c.Store.Path()
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "filesystem", Status: StatusFail,
			Details: fmt.Sprintf("word file %s: %v", path, err)}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Check{Name: "filesystem", Status: StatusFail,
			Details: fmt.Sprintf("word file not writable: %v", err)}
	}
	f.Close()

	details := fmt.Sprintf("word file %s (%d bytes)", path, info.Size())
	if binfo, err := os.Stat(c.Store.BackupPath()); err == nil {
		age := time.Since(binfo.ModTime())
		if age > 7*24*time.Hour {
			return Check{Name: "filesystem", Status: StatusWarn,
				Details: details + fmt.Sprintf("; backup is %.0f days old", age.Hours()/24)}
		}
	}
	return Check{Name: "filesystem", Status: StatusOK, Details: details}
}

// checkIntegrity parses the store and looks for malformed rows, duplicate
// terms and dates in the future.
func (c *Checker) checkIntegrity() Check {
	records, malformed, err := c.Store.ReadAll()
	if err != nil {
		return Check{Name: "data", Status: StatusFail, Details: err.Error()}
	}

	seen := make(map[string]bool, len(records))
	duplicates := 0
	futureDates := 0
	tomorrow := models.Midnight(time.Now()).AddDate(0, 0, 1)
	for _, rec := range records {
		key := strings.ToLower(rec.Term)
		if seen[key] {
			duplicates++
		}
		seen[key] = true
		if rec.LastReviewed.After(tomorrow) || rec.AddedDate.After(tomorrow) {
			futureDates++
		}
	}

	details := fmt.Sprintf("%d records", len(records))
	status := StatusOK
	if len(malformed) > 0 {
		status = StatusWarn
		details += fmt.Sprintf(", %d malformed rows", len(malformed))
	}
	if duplicates > 0 {
		status = StatusWarn
		details += fmt.Sprintf(", %d duplicate terms", duplicates)
	}
	if futureDates > 0 {
		status = StatusWarn
		details += fmt.Sprintf(", %d records dated in the future", futureDates)
	}
	return Check{Name: "data", Status: status, Details: details}
}

// checkNetwork probes the push server
func (c *Checker) checkNetwork(ctx context.Context) Check {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerURL, nil)
	if err != nil {
		return Check{Name: "network", Status: StatusFail, Details: err.Error()}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return Check{Name: "network", Status: StatusFail,
			Details: fmt.Sprintf("push server unreachable: %v", err)}
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Check{Name: "network", Status: StatusWarn,
			Details: fmt.Sprintf("push server returned %d", resp.StatusCode)}
	}
	return Check{Name: "network", Status: StatusOK,
		Details: fmt.Sprintf("push server reachable (%d)", resp.StatusCode)}
}
