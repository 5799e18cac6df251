package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/osrm-kit/pkg/osrm"
	"github.com/samvad-hq/osrm-kit/pkg/publishers"
)

type fakeExecutor struct {
	calls     []string
	distance  float64
	routeErr  error
	lastRoute osrm.RouteOptions
	lastMatch osrm.MatchOptions
	lastNum   int
}

func (f *fakeExecutor) Route(_ context.Context, _, _ osrm.Coordinate, opts osrm.RouteOptions) (*osrm.RouteResult, error) {
	f.calls = append(f.calls, "route")
	f.lastRoute = opts
	if f.routeErr != nil {
		return nil, f.routeErr
	}
	return &osrm.RouteResult{Distance: f.distance, Duration: 300, Steps: []osrm.Step{}}, nil
}

func (f *fakeExecutor) Table(_ context.Context, coords []osrm.Coordinate) (*osrm.Matrix, error) {
	f.calls = append(f.calls, "table")
	return &osrm.Matrix{Distances: [][]float64{{0}}, Durations: [][]float64{{0}}}, nil
}

func (f *fakeExecutor) Nearest(_ context.Context, _ osrm.Coordinate, number int) ([]osrm.Waypoint, error) {
	f.calls = append(f.calls, "nearest")
	f.lastNum = number
	return []osrm.Waypoint{{Name: "Pariser Platz"}}, nil
}

func (f *fakeExecutor) Trip(_ context.Context, _ []osrm.Coordinate, _ osrm.TripOptions) (*osrm.TripResult, error) {
	f.calls = append(f.calls, "trip")
	return &osrm.TripResult{Distance: 1}, nil
}

func (f *fakeExecutor) Match(_ context.Context, _ []osrm.Coordinate, opts osrm.MatchOptions) (*osrm.MatchResult, error) {
	f.calls = append(f.calls, "match")
	f.lastMatch = opts
	return &osrm.MatchResult{Confidence: 0.5}, nil
}

type recordingDispatcher struct {
	events []publishers.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.events = append(d.events, evt)
	return 1, nil
}

type memoryStore struct {
	entries map[string]string
}

func newMemoryStore() *memoryStore { return &memoryStore{entries: map[string]string{}} }

func (m *memoryStore) Close() error { return nil }
func (m *memoryStore) Unchanged(jobID, fingerprint string) (bool, error) {
	return m.entries[jobID] == fingerprint, nil
}
func (m *memoryStore) Record(jobID, fingerprint string) error {
	m.entries[jobID] = fingerprint
	return nil
}

func mustRegistry(t *testing.T, jobs ...Job) []Job {
	t.Helper()
	reg, err := NewRegistry(jobs)
	require.NoError(t, err)
	return reg.All()
}

func TestRunnerPublishesChangedResultsOnly(t *testing.T) {
	exec := &fakeExecutor{distance: 1500}
	out := &recordingDispatcher{}
	store := newMemoryStore()
	runner := NewRunner(exec, out, store, nil)
	runner.nowFn = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	jobs := mustRegistry(t, Job{
		ID:          "berlin-hop",
		Kind:        "route",
		Coordinates: []string{"13.388860,52.517037", "13.397634,52.529407"},
		Route:       osrm.RouteOptions{Steps: true},
	})

	require.NoError(t, runner.Run(context.Background(), jobs))
	require.Len(t, out.events, 1)
	evt := out.events[0]
	assert.Equal(t, "berlin-hop", evt.JobID)
	assert.Equal(t, "route", evt.Kind)
	assert.JSONEq(t, `{"distance":1500,"duration":300,"geometry":null,"steps":[]}`, string(evt.Result))
	assert.Equal(t, Fingerprint(evt.Result), evt.Fingerprint)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), evt.ComputedAt)
	assert.True(t, exec.lastRoute.Steps)

	require.NoError(t, runner.Run(context.Background(), jobs))
	assert.Len(t, out.events, 1, "unchanged result must not be published again")

	exec.distance = 1600
	require.NoError(t, runner.Run(context.Background(), jobs))
	assert.Len(t, out.events, 2)
}

func TestRunnerDispatchesEveryKind(t *testing.T) {
	exec := &fakeExecutor{}
	out := &recordingDispatcher{}
	jobs := mustRegistry(t,
		Job{ID: "r", Kind: "route", Coordinates: []string{"1,2", "3,4"}},
		Job{ID: "t", Kind: "table", Coordinates: []string{"1,2", "3,4"}},
		Job{ID: "n", Kind: "nearest", Coordinates: []string{"1,2"}, Number: 3},
		Job{ID: "p", Kind: "trip", Coordinates: []string{"1,2", "3,4"}},
		Job{ID: "m", Kind: "match", Coordinates: []string{"1,2", "3,4"}, Timestamps: []int64{1, 2}},
	)

	require.NoError(t, NewRunner(exec, out, nil, nil).Run(context.Background(), jobs))
	assert.Equal(t, []string{"route", "table", "nearest", "trip", "match"}, exec.calls)
	assert.Equal(t, 3, exec.lastNum)
	assert.Equal(t, []int64{1, 2}, exec.lastMatch.Timestamps)
	assert.Len(t, out.events, 5)
}

func TestRunnerSkipsDisabledJobs(t *testing.T) {
	disabled := false
	exec := &fakeExecutor{}
	jobs := mustRegistry(t, Job{ID: "off", Kind: "table", Enabled: &disabled})

	require.NoError(t, NewRunner(exec, &recordingDispatcher{}, nil, nil).Run(context.Background(), jobs))
	assert.Empty(t, exec.calls)
}

func TestRunnerJoinsJobFailures(t *testing.T) {
	svcErr := &osrm.ServiceError{Service: "route", Code: "NoRoute"}
	exec := &fakeExecutor{routeErr: svcErr}
	out := &recordingDispatcher{}
	jobs := mustRegistry(t,
		Job{ID: "broken", Kind: "route", Coordinates: []string{"1,2", "3,4"}},
		Job{ID: "fine", Kind: "table", Coordinates: []string{"1,2"}},
	)

	err := NewRunner(exec, out, nil, nil).Run(context.Background(), jobs)
	require.Error(t, err)

	var target *osrm.ServiceError
	assert.True(t, errors.As(err, &target))
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, out.events, 1, "other jobs still publish")
}

func TestRunnerDoesNotRecordWhenPublishFails(t *testing.T) {
	store := newMemoryStore()
	out := &recordingDispatcher{err: errors.New("sink down")}
	jobs := mustRegistry(t, Job{ID: "t", Kind: "table", Coordinates: []string{"1,2"}})

	err := NewRunner(&fakeExecutor{}, out, store, nil).Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExecutor{}
	jobs := mustRegistry(t, Job{ID: "t", Kind: "table"})

	err := NewRunner(exec, &recordingDispatcher{}, nil, nil).Run(ctx, jobs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.calls)
}

func TestRunnerRequiresJobs(t *testing.T) {
	assert.Error(t, NewRunner(&fakeExecutor{}, nil, nil, nil).Run(context.Background(), nil))
}
