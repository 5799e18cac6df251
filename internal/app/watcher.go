package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/osrm-kit/internal/batch"
	"github.com/samvad-hq/osrm-kit/internal/config"
	"github.com/samvad-hq/osrm-kit/internal/logger"
	"github.com/samvad-hq/osrm-kit/internal/storage"
	"github.com/samvad-hq/osrm-kit/pkg/httpclient"
	"github.com/samvad-hq/osrm-kit/pkg/osrm"
	"github.com/samvad-hq/osrm-kit/pkg/publishers"
)

// Watcher represents the routing watch runtime. It re-runs the configured
// jobs on a fixed interval and publishes results that changed, owning the
// publishers and the fingerprint store for its lifetime.
type Watcher struct {
	cfg      *config.Config
	jobs     []batch.Job
	fanout   *publishers.Fanout
	runner   *batch.Runner
	interval time.Duration
	log      logger.Logger
	store    storage.Store
}

// NewClient builds the routing client described by cfg.
func NewClient(cfg *config.Config, log logger.Logger) *osrm.Client {
	transport := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.HTTPUserAgent,
	})
	client := osrm.NewClient(cfg.OSRMBaseURL, transport).WithProfile(cfg.OSRMProfile)
	if log != nil {
		client = client.WithLogger(log)
	}
	return client
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	jobReg, err := batch.LoadRegistry(cfg.JobsFile)
	if err != nil {
		return nil, fmt.Errorf("load jobs registry: %w", err)
	}
	jobs := jobReg.Enabled()
	jobIDs := make([]string, 0, len(jobs))
	for _, j := range jobs {
		jobIDs = append(jobIDs, j.ID)
	}
	log.InfoObj("jobs registry loaded", "jobs_meta", map[string]any{
		"count": len(jobIDs),
		"ids":   jobIDs,
	})

	publisherCfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}

	enabledPublishers := publisherCfgs.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Watcher{
		cfg:      cfg,
		jobs:     jobs,
		fanout:   fanout,
		runner:   batch.NewRunner(NewClient(cfg, log), fanout, store, log),
		interval: cfg.WatchInterval,
		log:      log,
		store:    store,
	}, nil
}

// Run executes one pass immediately and then one per interval until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.runner == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.Close()

	if len(w.jobs) == 0 {
		w.log.WarnObj("no enabled jobs; watcher idle", "jobs_file", w.cfg.JobsFile)
		<-ctx.Done()
		return nil
	}

	w.log.InfoObj("watch loop starting", "watcher_state", map[string]any{
		"jobs_count":       len(w.jobs),
		"publishers_count": w.fanout.Size(),
		"watch_interval":   w.interval.String(),
	})

	if err := w.RunOnce(ctx); err != nil {
		w.log.ErrorObj("initial pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watch loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled pass failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single pass over the enabled jobs.
func (w *Watcher) RunOnce(ctx context.Context) error {
	if len(w.jobs) == 0 {
		return fmt.Errorf("no enabled jobs in %s", w.cfg.JobsFile)
	}
	start := time.Now()
	w.log.InfoObj("pass started", "pass_meta", map[string]any{
		"jobs_count": len(w.jobs),
		"started_at": start.UTC(),
	})
	if err := w.runner.Run(ctx, w.jobs); err != nil {
		return err
	}
	w.log.InfoObj("pass completed", "pass_meta", map[string]any{
		"jobs_count": len(w.jobs),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Close releases the store and the publishers. It is safe to call twice.
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err.Error())
		}
		w.store = nil
	}
	if w.fanout != nil {
		if err := w.fanout.Close(); err != nil {
			w.log.ErrorObj("publishers close failed", "error", err.Error())
		}
		w.fanout = nil
	}
}
