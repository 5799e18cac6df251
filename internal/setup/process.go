package setup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Supported OSRM profiles, matching the lua files shipped in the backend image.
const (
	ProfileCar     = "car"
	ProfileBicycle = "bicycle"
	ProfileFoot    = "foot"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OSRunner implements CommandRunner using os/exec.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Processor turns an extract into an MLD routing graph inside the backend image.
type Processor struct {
	runner  CommandRunner
	image   string
	profile string
}

// NewProcessor validates profile and returns a processor.
func NewProcessor(runner CommandRunner, image, profile string) (*Processor, error) {
	profile = strings.ToLower(strings.TrimSpace(profile))
	switch profile {
	case ProfileCar, ProfileBicycle, ProfileFoot:
	default:
		return nil, fmt.Errorf("unsupported profile %q (expected car, bicycle or foot)", profile)
	}
	if runner == nil {
		runner = OSRunner{}
	}
	return &Processor{runner: runner, image: image, profile: profile}, nil
}

// Process runs extract, partition and customize for the extract in dir and
// returns the path of the resulting .osrm file.
func (p *Processor) Process(ctx context.Context, dir string, region Region) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if _, err := os.Stat(filepath.Join(absDir, region.FileName())); err != nil {
		return "", fmt.Errorf("extract for %s not found in %s: %w", region.Name, absDir, err)
	}

	graph := "/data/" + region.OSRMName()
	steps := [][]string{
		{"osrm-extract", "-p", "/opt/" + p.profile + ".lua", "/data/" + region.FileName()},
		{"osrm-partition", graph},
		{"osrm-customize", graph},
	}
	for _, step := range steps {
		args := append(p.dockerArgs(absDir), step...)
		if out, err := p.runner.Run(ctx, "docker", args...); err != nil {
			return "", fmt.Errorf("%s %s: %w: %s", step[0], region.Name, err, tail(out))
		}
	}
	return filepath.Join(absDir, region.OSRMName()), nil
}

func (p *Processor) dockerArgs(absDir string) []string {
	return []string{"run", "--rm", "-v", absDir + ":/data", p.image}
}

// Serve starts osrm-routed for region as a detached container published on
// port and returns the container id.
func (p *Processor) Serve(ctx context.Context, dir string, region Region, port string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	args := []string{"run", "-d", "--rm", "-p", port + ":5000", "-v", absDir + ":/data", p.image,
		"osrm-routed", "--algorithm", "mld", "/data/" + region.OSRMName()}
	out, err := p.runner.Run(ctx, "docker", args...)
	if err != nil {
		return "", fmt.Errorf("osrm-routed %s: %w: %s", region.Name, err, tail(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// ServeCommand returns the docker command that starts osrm-routed on port 5000
// for a processed region.
func ServeCommand(dir, image string, region Region) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	return fmt.Sprintf("docker run -t -i -p 5000:5000 -v %q:/data %s osrm-routed --algorithm mld /data/%s",
		absDir, image, region.OSRMName())
}

// tail keeps the end of command output for error messages.
func tail(out []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(out))
	if len(s) > maxLen {
		return "..." + s[len(s)-maxLen:]
	}
	if s == "" {
		return "<no output>"
	}
	return s
}
