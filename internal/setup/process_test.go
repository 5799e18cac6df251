package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	commands []string
	failOn   string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	cmd := name + " " + strings.Join(args, " ")
	f.commands = append(f.commands, cmd)
	if f.failOn != "" && strings.Contains(cmd, f.failOn) {
		return []byte("[error] profile not found"), errors.New("exit status 1")
	}
	return []byte("ok"), nil
}

func writeExtract(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+"-latest.osm.pbf"), []byte("pbf"), 0o644))
}

func TestProcessorRunsMLDPipeline(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "monaco")
	runner := &fakeRunner{}

	proc, err := NewProcessor(runner, "osrm/osrm-backend", "Bicycle")
	require.NoError(t, err)

	graph, err := proc.Process(context.Background(), dir, Region{Name: "monaco"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "monaco-latest.osrm"), graph)

	prefix := "docker run --rm -v " + dir + ":/data osrm/osrm-backend "
	assert.Equal(t, []string{
		prefix + "osrm-extract -p /opt/bicycle.lua /data/monaco-latest.osm.pbf",
		prefix + "osrm-partition /data/monaco-latest.osrm",
		prefix + "osrm-customize /data/monaco-latest.osrm",
	}, runner.commands)
}

func TestProcessorStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, "monaco")
	runner := &fakeRunner{failOn: "osrm-extract"}

	proc, err := NewProcessor(runner, DefaultImage, ProfileCar)
	require.NoError(t, err)

	_, err = proc.Process(context.Background(), dir, Region{Name: "monaco"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile not found")
	assert.Len(t, runner.commands, 1)
}

func TestProcessorRequiresExtract(t *testing.T) {
	runner := &fakeRunner{}
	proc, err := NewProcessor(runner, DefaultImage, ProfileFoot)
	require.NoError(t, err)

	_, err = proc.Process(context.Background(), t.TempDir(), Region{Name: "monaco"})
	require.Error(t, err)
	assert.Empty(t, runner.commands)
}

func TestNewProcessorRejectsUnknownProfile(t *testing.T) {
	_, err := NewProcessor(&fakeRunner{}, DefaultImage, "truck")
	assert.Error(t, err)
}

func TestServeCommand(t *testing.T) {
	cmd := ServeCommand("/srv/osrm", DefaultImage, Region{Name: "germany"})
	assert.Equal(t, `docker run -t -i -p 5000:5000 -v "/srv/osrm":/data ghcr.io/project-osrm/osrm-backend osrm-routed --algorithm mld /data/germany-latest.osrm`, cmd)
}

func TestProcessorServe(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	proc, err := NewProcessor(runner, DefaultImage, ProfileCar)
	require.NoError(t, err)

	id, err := proc.Serve(context.Background(), dir, Region{Name: "north-macedonia"}, "5000")
	require.NoError(t, err)
	assert.Equal(t, "ok", id)
	assert.Equal(t, []string{
		"docker run -d --rm -p 5000:5000 -v " + dir + ":/data " + DefaultImage +
			" osrm-routed --algorithm mld /data/north-macedonia-latest.osrm",
	}, runner.commands)
}
