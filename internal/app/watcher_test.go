package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/osrm-kit/internal/config"
	"github.com/samvad-hq/osrm-kit/pkg/publishers"
)

type sink struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (s *sink) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		s.mu.Lock()
		s.events = append(s.events, evt)
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestConfig(t *testing.T, osrmURL, sinkURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	jobs := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(jobs, []byte(`
jobs:
  - id: berlin-hop
    kind: route
    coordinates: ["13.388860,52.517037", "13.397634,52.529407"]
`), 0o644); err != nil {
		t.Fatalf("write jobs: %v", err)
	}

	pubs := filepath.Join(dir, "publishers.yaml")
	if err := os.WriteFile(pubs, []byte(fmt.Sprintf(`
publishers:
  - id: hook
    type: http
    http:
      url: %s
`, sinkURL)), 0o644); err != nil {
		t.Fatalf("write publishers: %v", err)
	}

	return &config.Config{
		OSRMBaseURL:            osrmURL,
		OSRMProfile:            "driving",
		HTTPTimeout:            2 * time.Second,
		HTTPUserAgent:          "osrm-kit/test",
		JobsFile:               jobs,
		PublishersFile:         pubs,
		WatchInterval:          time.Hour,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "results.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Minute,
	}
}

func newOSRMStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "osrm-kit/test" {
			t.Errorf("unexpected user agent %q", got)
		}
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1500,"duration":300,"geometry":{},"legs":[{"steps":[]}]}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWatcherRunOncePublishesChangedResults(t *testing.T) {
	out := &sink{}
	sinkSrv := httptest.NewServer(out.handler(t))
	defer sinkSrv.Close()
	osrmSrv := newOSRMStub(t)

	w, err := NewWatcher(context.Background(), newTestConfig(t, osrmSrv.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if out.count() != 1 {
		t.Fatalf("expected a single published event, got %d", out.count())
	}
	evt := out.events[0]
	if evt.JobID != "berlin-hop" || evt.Kind != "route" || evt.Fingerprint == "" {
		t.Fatalf("unexpected event %#v", evt)
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	out := &sink{}
	sinkSrv := httptest.NewServer(out.handler(t))
	defer sinkSrv.Close()
	osrmSrv := newOSRMStub(t)

	w, err := NewWatcher(context.Background(), newTestConfig(t, osrmSrv.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for out.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
	if out.count() != 1 {
		t.Fatalf("expected the immediate pass to publish once, got %d", out.count())
	}
}

func TestNewWatcherRequiresPublishers(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost:1", "http://localhost:2")
	if err := os.WriteFile(cfg.PublishersFile, []byte(`
publishers:
  - id: hook
    type: http
    enabled: false
    http:
      url: http://localhost:2
`), 0o644); err != nil {
		t.Fatalf("write publishers: %v", err)
	}

	if _, err := NewWatcher(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error when every publisher is disabled")
	}
}

func TestNewWatcherRejectsNilConfig(t *testing.T) {
	if _, err := NewWatcher(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
