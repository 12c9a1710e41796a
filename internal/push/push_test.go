package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wordpusher/internal/notify"
	"github.com/example/wordpusher/internal/review"
	"github.com/example/wordpusher/internal/store"
)

type fixture struct {
	pusher   *Pusher
	store    *store.Store
	requests *int32
}

// newFixture builds a pusher against a temp store and a fake push endpoint
func newFixture(t *testing.T, fileContent string, today string, status int) *fixture {
	t.Helper()

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "words.csv")
	require.NoError(t, os.WriteFile(path, []byte(fileContent), 0644))

	st := store.New(path)
	disp := notify.New(srv.URL, "test-topic", filepath.Join(dir, "failed.log"))
	disp.BackoffBase = time.Millisecond

	p := New(st, review.NewScheduler(), disp)
	day, err := time.Parse("2006-01-02", today)
	require.NoError(t, err)
	p.Now = func() time.Time { return day }

	return &fixture{pusher: p, store: st, requests: &requests}
}

func TestRunDeliversNewWordAndAdvancesIt(t *testing.T) {
	f := newFixture(t, "lucid,清楚的,2024-01-01,2024-01-01,0\n", "2024-01-02", http.StatusOK)

	res, err := f.pusher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Selected)
	assert.True(t, res.Delivered)
	assert.Equal(t, 1, res.Advanced)

	records, _, err := f.store.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "lucid", records[0].Term)
	assert.Equal(t, "清楚的", records[0].Definition)
	assert.Equal(t, "2024-01-01", records[0].AddedDate.Format("2006-01-02"))
	assert.Equal(t, "2024-01-02", records[0].LastReviewed.Format("2006-01-02"))
	assert.Equal(t, 1, records[0].ReviewStage)
}

func TestRunNothingDueIsANoOp(t *testing.T) {
	// Stage 1, reviewed yesterday: due tomorrow.
	f := newFixture(t, "terse,简洁的,2024-01-01,2024-01-01,1\n", "2024-01-02", http.StatusOK)
	before, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)

	res, err := f.pusher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Selected)
	assert.False(t, res.Delivered)

	assert.Equal(t, int32(0), atomic.LoadInt32(f.requests), "no network call for an empty batch")
	after, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "file untouched")
}

func TestRunDeliveryFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, "lucid,清楚的,2024-01-01,2024-01-01,0\n", "2024-01-02", http.StatusInternalServerError)
	before, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)

	res, err := f.pusher.Run(context.Background())
	assert.ErrorIs(t, err, notify.ErrDeliveryFailed)
	assert.Equal(t, 1, res.Selected)
	assert.False(t, res.Delivered)
	assert.Equal(t, 0, res.Advanced)

	after, rerr := os.ReadFile(f.store.Path())
	require.NoError(t, rerr)
	assert.Equal(t, string(before), string(after), "no state advance without confirmed delivery")

	logged, rerr := os.ReadFile(f.pusher.Dispatcher.FailLogPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(logged), "lucid: 清楚的")
}

func TestRunToleratesMalformedRows(t *testing.T) {
	content := "lucid,清楚的,2024-01-01,2024-01-01,0\n" +
		"broken,row\n"
	f := newFixture(t, content, "2024-01-02", http.StatusOK)

	res, err := f.pusher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Selected)
	assert.Equal(t, 1, res.Malformed)
}

func TestRunKeepsMalformedRowsAfterCommit(t *testing.T) {
	// A malformed row is skipped for selection but must survive the
	// committed rewrite untouched; only the operator may remove it.
	content := "lucid,清楚的,2024-01-01,2024-01-01,0\n" +
		"broken,row\n" +
		"terse,简洁的,2024-01-01,2024-01-01,5\n"
	f := newFixture(t, content, "2024-01-02", http.StatusOK)

	res, err := f.pusher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Selected)
	assert.Equal(t, 1, res.Advanced)

	after, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	want := "lucid,清楚的,2024-01-01,2024-01-02,1\n" +
		"broken,row\n" +
		"terse,简洁的,2024-01-01,2024-01-01,5\n"
	assert.Equal(t, want, string(after), "malformed row written back at its original line")
}

func TestRunSecondCycleSameDaySelectsNothing(t *testing.T) {
	// After an advance on 2024-01-02 the word is at stage 1 with a 2-day
	// interval, so a rerun the same day finds nothing due.
	f := newFixture(t, "lucid,清楚的,2024-01-01,2024-01-01,0\n", "2024-01-02", http.StatusOK)

	_, err := f.pusher.Run(context.Background())
	require.NoError(t, err)

	res, err := f.pusher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Selected)
}
