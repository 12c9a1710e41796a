package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wordpusher/pkg/models"
)

func batch() []models.WordRecord {
	return []models.WordRecord{
		{Term: "lucid", Definition: "清楚的"},
		{Term: "terse", Definition: "简洁的"},
	}
}

// pushServer records every request and answers per-path status codes
type pushServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   map[string]int // keyed by path; missing means 200
}

type recordedRequest struct {
	path        string
	contentType string
	body        string
}

func (p *pushServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		p.mu.Lock()
		p.requests = append(p.requests, recordedRequest{
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		status := p.status[r.URL.Path]
		p.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (p *pushServer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newDispatcher(t *testing.T, serverURL string) *Dispatcher {
	t.Helper()
	d := New(serverURL, "test-topic", filepath.Join(t.TempDir(), "failed.log"))
	d.BackoffBase = time.Millisecond
	return d
}

func TestDeliverEmptyBatchMakesNoCall(t *testing.T) {
	ps := &pushServer{}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	d := newDispatcher(t, srv.URL)
	require.NoError(t, d.Deliver(context.Background(), nil))
	assert.Equal(t, 0, ps.count())
}

func TestDeliverJSONFirst(t *testing.T) {
	ps := &pushServer{}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	d := newDispatcher(t, srv.URL)
	require.NoError(t, d.Deliver(context.Background(), batch()))

	require.Equal(t, 1, ps.count())
	req := ps.requests[0]
	assert.Equal(t, "/", req.path)
	assert.Equal(t, "application/json", req.contentType)

	var payload struct {
		Topic   string `json:"topic"`
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.body), &payload))
	assert.Equal(t, "test-topic", payload.Topic)
	assert.Equal(t, "lucid: 清楚的\nterse: 简洁的", payload.Message)
}

func TestDeliverFallsThroughToNextMethod(t *testing.T) {
	// JSON publishes to the server root; fail that path so the raw text
	// method on /test-topic gets its turn.
	ps := &pushServer{status: map[string]int{"/": http.StatusBadRequest}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	d := newDispatcher(t, srv.URL)
	require.NoError(t, d.Deliver(context.Background(), batch()))

	// 2 failed JSON attempts, then the first text attempt succeeds; the
	// ASCII method is never reached.
	require.Equal(t, 3, ps.count())
	assert.Equal(t, "/", ps.requests[0].path)
	assert.Equal(t, "/", ps.requests[1].path)
	assert.Equal(t, "/test-topic", ps.requests[2].path)
	assert.Equal(t, "lucid: 清楚的\nterse: 简洁的", ps.requests[2].body)
}

func TestDeliverExhaustedWritesFailureLog(t *testing.T) {
	ps := &pushServer{status: map[string]int{
		"/":           http.StatusInternalServerError,
		"/test-topic": http.StatusInternalServerError,
	}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	d := newDispatcher(t, srv.URL)
	err := d.Deliver(context.Background(), batch())
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	// 3 methods, 2 attempts each.
	assert.Equal(t, 6, ps.count())

	logged, rerr := os.ReadFile(d.FailLogPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(logged), "lucid: 清楚的")
	assert.Contains(t, string(logged), "terse: 简洁的")
	assert.Contains(t, string(logged), "--- End ---")
}

func TestDeliverUnreachableServerWritesFailureLog(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	d := newDispatcher(t, srv.URL)
	err := d.Deliver(context.Background(), batch())
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	_, rerr := os.Stat(d.FailLogPath)
	assert.NoError(t, rerr)
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "lucid: 清楚的\nterse: 简洁的", FormatMessage(batch()))
	assert.Equal(t, "", FormatMessage(nil))
}

func TestASCIIFallbackDropsNonLatinContent(t *testing.T) {
	ps := &pushServer{}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	d := newDispatcher(t, srv.URL)
	require.NoError(t, d.sendASCII(context.Background(), batch()))

	require.Equal(t, 1, ps.count())
	body := ps.requests[0].body
	assert.Contains(t, body, "1. lucid")
	assert.Contains(t, body, "2. terse")
	assert.NotContains(t, body, "清楚的")
}

func TestAsciiOnly(t *testing.T) {
	assert.Equal(t, "Word review (3)", asciiOnly("Word review (3词)"))
	assert.Equal(t, "plain", asciiOnly("plain"))
}
