package setup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

type staticResolver struct {
	baseURL  string
	resolved []string
}

func (s *staticResolver) Resolve(_ context.Context, region string) (Region, error) {
	s.resolved = append(s.resolved, region)
	if region == "atlantis" {
		return Region{}, errors.New("not found")
	}
	return Region{Name: region, URL: s.baseURL + "/" + region + "-latest.osm.pbf"}, nil
}

func testPipeline(t *testing.T, opts Options) (*pipeline, *fakeRunner, *staticResolver, *int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pbf"))
	}))
	t.Cleanup(srv.Close)

	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	p := newPipeline(opts)
	runner := &fakeRunner{}
	resolver := &staticResolver{baseURL: srv.URL}
	healthChecks := 0
	p.runner = runner
	p.resolver = resolver
	p.health = func(context.Context) error {
		healthChecks++
		return nil
	}
	p.poll = 10 * time.Millisecond
	return p, runner, resolver, &healthChecks
}

func TestSetupRunsEveryPhase(t *testing.T) {
	dir := t.TempDir()
	p, runner, _, checks := testPipeline(t, Options{Regions: []string{"monaco", "andorra"}, Dir: dir})

	res, err := p.run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{
		filepath.Join(dir, "monaco-latest.osm.pbf"),
		filepath.Join(dir, "monaco-latest.osrm"),
		filepath.Join(dir, "andorra-latest.osm.pbf"),
		filepath.Join(dir, "andorra-latest.osrm"),
	}, res.Files)
	assert.Len(t, runner.commands, 6)
	assert.Contains(t, runner.commands[0], "/opt/car.lua")
	assert.Equal(t, 1, *checks)
}

func TestSetupDownloadOnly(t *testing.T) {
	p, runner, _, checks := testPipeline(t, Options{
		Regions:         []string{"monaco"},
		SkipProcessing:  true,
		SkipHealthCheck: true,
	})

	res, err := p.run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Files, 1)
	assert.Empty(t, runner.commands)
	assert.Zero(t, *checks)
}

func TestSetupProcessOnlySkipsResolution(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "germany")
	p, runner, resolver, _ := testPipeline(t, Options{
		Regions:         []string{"europe/germany"},
		Dir:             dir,
		Profile:         ProfileFoot,
		SkipDownload:    true,
		SkipHealthCheck: true,
	})

	res, err := p.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "germany-latest.osrm")}, res.Files)
	assert.Empty(t, resolver.resolved)
	assert.Contains(t, runner.commands[0], "/opt/foot.lua /data/germany-latest.osm.pbf")
}

func TestSetupFailsOnUnknownRegion(t *testing.T) {
	p, _, _, _ := testPipeline(t, Options{Regions: []string{"atlantis"}})

	res, err := p.run(context.Background())
	require.Error(t, err)
	assert.False(t, res.Success)
}

func TestSetupRequiresRegions(t *testing.T) {
	p, _, _, _ := testPipeline(t, Options{})
	_, err := p.run(context.Background())
	assert.Error(t, err)
}

func TestSetupHealthCheckOnly(t *testing.T) {
	p, _, _, checks := testPipeline(t, Options{SkipDownload: true, SkipProcessing: true})
	p.health = func(context.Context) error {
		*checks++
		return errors.New("connection refused")
	}

	res, err := p.run(context.Background())
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, *checks)
}

func TestSetupRejectsUnknownProfileBeforeDownloading(t *testing.T) {
	p, _, resolver, _ := testPipeline(t, Options{Regions: []string{"monaco"}, Profile: "truck"})

	_, err := p.run(context.Background())
	require.Error(t, err)
	assert.Empty(t, resolver.resolved)
}

func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	return addr
}

func TestSetupStartsServerAndReportsWhenItNeverAnswers(t *testing.T) {
	dir := t.TempDir()
	base := closedURL(t)
	p, runner, _, _ := testPipeline(t, Options{
		Regions:       []string{"monaco"},
		Dir:           dir,
		BaseURL:       base,
		HealthTimeout: 100 * time.Millisecond,
	})
	client := osrm.NewClient(base, nil)
	p.health = func(ctx context.Context) error { return CheckHealth(ctx, client) }

	res, err := p.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for osrm server")
	assert.False(t, res.Success)
	assert.Equal(t, []string{
		filepath.Join(dir, "monaco-latest.osm.pbf"),
		filepath.Join(dir, "monaco-latest.osrm"),
	}, res.Files)
	require.Len(t, res.Built, 1)
	assert.Equal(t, "monaco", res.Built[0].Name)
	assert.Equal(t, "ok", res.Server)

	u, err := url.Parse(base)
	require.NoError(t, err)
	require.Len(t, runner.commands, 4)
	serve := runner.commands[3]
	assert.True(t, strings.HasPrefix(serve, "docker run -d --rm -p "+u.Port()+":5000 "), serve)
	assert.True(t, strings.HasSuffix(serve, "osrm-routed --algorithm mld /data/monaco-latest.osrm"), serve)
}

func TestSetupWaitsForStartedServer(t *testing.T) {
	p, runner, _, checks := testPipeline(t, Options{
		Regions:       []string{"monaco"},
		BaseURL:       "http://localhost:5001",
		HealthTimeout: time.Second,
	})
	p.health = func(context.Context) error {
		*checks++
		if *checks < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	res, err := p.run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, *checks)
	assert.Contains(t, runner.commands[3], "-p 5001:5000")
}

func TestSetupUsesRunningServer(t *testing.T) {
	p, runner, _, checks := testPipeline(t, Options{Regions: []string{"monaco"}})

	res, err := p.run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Server)
	assert.Len(t, runner.commands, 3)
	assert.Equal(t, 1, *checks)
}

func TestServePort(t *testing.T) {
	for base, want := range map[string]string{
		"http://localhost:5000": "5000",
		"http://osrm.internal":  "80",
		"https://osrm.internal": "443",
	} {
		got, err := servePort(base)
		require.NoError(t, err)
		assert.Equal(t, want, got, base)
	}
}
