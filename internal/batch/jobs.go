package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/osrm-kit/internal/domain"
	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

// jobsFile represents the structure of the jobs configuration file.
type jobsFile struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Job is a named routing request declared in the jobs file.
type Job struct {
	ID          string            `json:"id" yaml:"id"`
	Kind        string            `json:"kind" yaml:"kind"`
	Coordinates []string          `json:"coordinates" yaml:"coordinates"`
	Route       osrm.RouteOptions `json:"route" yaml:"route"`
	Number      int               `json:"number" yaml:"number"`
	Trip        osrm.TripOptions  `json:"trip" yaml:"trip"`
	Timestamps  []int64           `json:"timestamps" yaml:"timestamps"`
	Enabled     *bool             `json:"enabled" yaml:"enabled"`

	points []osrm.Coordinate
}

// Points returns the parsed coordinates of the job.
func (j Job) Points() []osrm.Coordinate {
	out := make([]osrm.Coordinate, len(j.points))
	copy(out, j.points)
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (j Job) EnabledValue() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

// Registry holds the jobs loaded from a jobs file.
type Registry struct {
	mu   sync.RWMutex
	jobs []Job
	idx  map[string]Job
}

// LoadRegistry loads and validates jobs from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("jobs file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	parsed, err := parseJobsFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Jobs)
}

// NewRegistry sanitizes and validates jobs and indexes them by id.
func NewRegistry(jobs []Job) (*Registry, error) {
	if len(jobs) == 0 {
		return nil, errors.New("jobs file contains no jobs entries")
	}

	reg := &Registry{
		jobs: make([]Job, len(jobs)),
		idx:  make(map[string]Job, len(jobs)),
	}
	for i := range jobs {
		job, err := prepareJob(jobs[i])
		if err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if _, exists := reg.idx[job.ID]; exists {
			return nil, fmt.Errorf("duplicate job id %q", job.ID)
		}
		reg.jobs[i] = job
		reg.idx[job.ID] = job
	}
	return reg, nil
}

func parseJobsFile(data []byte, ext string) (jobsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var f jobsFile
		if err := d.fn(data, &f); err == nil {
			return f, nil
		}
	}
	return jobsFile{}, errors.New("jobs file format not recognized (expected YAML or JSON)")
}

func prepareJob(j Job) (Job, error) {
	j = sanitizeJob(j)
	if err := validateJob(j); err != nil {
		return Job{}, err
	}

	points, err := osrm.ParseCoordinates(j.Coordinates)
	if err != nil {
		return Job{}, fmt.Errorf("job %q: %w", j.ID, err)
	}
	j.points = points
	return j, nil
}

func sanitizeJob(j Job) Job {
	j.ID = strings.TrimSpace(j.ID)
	j.Kind = strings.ToLower(strings.TrimSpace(j.Kind))

	coords := make([]string, 0, len(j.Coordinates))
	for _, c := range j.Coordinates {
		if c = strings.TrimSpace(c); c != "" {
			coords = append(coords, c)
		}
	}
	j.Coordinates = coords

	if j.Enabled == nil {
		def := true
		j.Enabled = &def
	}
	return j
}

func validateJob(j Job) error {
	if j.ID == "" {
		return errors.New("id is required")
	}
	switch j.Kind {
	case domain.KindRoute:
		if len(j.Coordinates) != 2 {
			return fmt.Errorf("route job %q needs exactly 2 coordinates, got %d", j.ID, len(j.Coordinates))
		}
	case domain.KindNearest:
		if len(j.Coordinates) != 1 {
			return fmt.Errorf("nearest job %q needs exactly 1 coordinate, got %d", j.ID, len(j.Coordinates))
		}
	case domain.KindTable, domain.KindTrip, domain.KindMatch:
	case "":
		return fmt.Errorf("kind is required for job %q", j.ID)
	default:
		return fmt.Errorf("unsupported kind %q for job %q", j.Kind, j.ID)
	}
	return nil
}

// ByID returns the job by id.
func (r *Registry) ByID(id string) (Job, bool) {
	if r == nil {
		return Job{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.idx[strings.TrimSpace(id)]
	return j, ok
}

// All returns all configured jobs in file order.
func (r *Registry) All() []Job {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Enabled returns jobs that are enabled.
func (r *Registry) Enabled() []Job {
	all := r.All()
	out := make([]Job, 0, len(all))
	for _, j := range all {
		if j.EnabledValue() {
			out = append(out, j)
		}
	}
	return out
}
