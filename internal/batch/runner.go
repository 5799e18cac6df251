package batch

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic fingerprint
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/osrm-kit/internal/domain"
	"github.com/samvad-hq/osrm-kit/internal/logger"
	"github.com/samvad-hq/osrm-kit/internal/storage"
	"github.com/samvad-hq/osrm-kit/pkg/osrm"
	"github.com/samvad-hq/osrm-kit/pkg/publishers"
)

// Runner executes jobs and publishes results that changed since the last pass.
type Runner struct {
	exec  Executor
	out   Dispatcher
	store storage.Store
	log   logger.Logger
	nowFn func() time.Time
}

// NewRunner wires a runner. A nil store publishes every result; a nil log discards output.
func NewRunner(exec Executor, out Dispatcher, store storage.Store, log logger.Logger) *Runner {
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{
		exec:  exec,
		out:   out,
		store: store,
		log:   log,
		nowFn: time.Now,
	}
}

// Run executes a pass over jobs. Disabled jobs are skipped; per-job failures
// are logged and joined into the returned error.
func (r *Runner) Run(ctx context.Context, jobs []Job) error {
	if r == nil || r.exec == nil {
		return fmt.Errorf("batch runner is not initialized")
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no jobs configured for batch run")
	}

	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !job.EnabledValue() {
			continue
		}
		if err := r.runJob(ctx, job); err != nil {
			errs = append(errs, err)
			r.log.ErrorObj("job failed", "job_error", map[string]any{
				"job_id": job.ID,
				"kind":   job.Kind,
				"error":  err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) runJob(ctx context.Context, job Job) error {
	res, err := r.Execute(ctx, job)
	if err != nil {
		return err
	}

	unchanged, err := r.store.Unchanged(res.JobID, res.Fingerprint)
	if err != nil {
		return fmt.Errorf("job %s: check store: %w", job.ID, err)
	}
	if unchanged {
		r.log.DebugObj("job result unchanged", "job_result", map[string]any{
			"job_id":      job.ID,
			"fingerprint": res.Fingerprint,
		})
		return nil
	}

	if r.out != nil {
		evt := publishers.NewEvent(res)
		evt.ComputedAt = r.nowFn().UTC()
		delivered, err := r.out.Publish(ctx, evt)
		if err != nil {
			return fmt.Errorf("job %s: publish (%d delivered): %w", job.ID, delivered, err)
		}
	}

	if err := r.store.Record(res.JobID, res.Fingerprint); err != nil {
		return fmt.Errorf("job %s: record fingerprint: %w", job.ID, err)
	}
	r.log.InfoObj("job result published", "job_result", map[string]any{
		"job_id":      job.ID,
		"kind":        job.Kind,
		"fingerprint": res.Fingerprint,
	})
	return nil
}

// Execute runs a single job against the routing service and fingerprints the result.
func (r *Runner) Execute(ctx context.Context, job Job) (domain.Result, error) {
	value, err := r.call(ctx, job)
	if err != nil {
		return domain.Result{}, fmt.Errorf("job %s: %s: %w", job.ID, job.Kind, err)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return domain.Result{}, fmt.Errorf("job %s: encode result: %w", job.ID, err)
	}
	return domain.Result{
		JobID:       job.ID,
		Kind:        job.Kind,
		Fingerprint: Fingerprint(payload),
		Payload:     payload,
	}, nil
}

func (r *Runner) call(ctx context.Context, job Job) (any, error) {
	points := job.points
	switch job.Kind {
	case domain.KindRoute:
		if len(points) != 2 {
			return nil, fmt.Errorf("route needs 2 coordinates, got %d", len(points))
		}
		return r.exec.Route(ctx, points[0], points[1], job.Route)
	case domain.KindTable:
		return r.exec.Table(ctx, points)
	case domain.KindNearest:
		if len(points) != 1 {
			return nil, fmt.Errorf("nearest needs 1 coordinate, got %d", len(points))
		}
		return r.exec.Nearest(ctx, points[0], job.Number)
	case domain.KindTrip:
		return r.exec.Trip(ctx, points, job.Trip)
	case domain.KindMatch:
		return r.exec.Match(ctx, points, osrm.MatchOptions{Timestamps: job.Timestamps})
	default:
		return nil, fmt.Errorf("unsupported kind %q", job.Kind)
	}
}

// Fingerprint returns the hex sha1 of payload.
func Fingerprint(payload []byte) string {
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}
