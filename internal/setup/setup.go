// Package setup downloads OpenStreetMap extracts and prepares them for an
// OSRM backend running in docker.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/osrm-kit/internal/logger"
	"github.com/samvad-hq/osrm-kit/pkg/httpclient"
	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

const (
	DefaultDir          = "./osrm-data"
	DefaultImage        = "ghcr.io/project-osrm/osrm-backend"
	DefaultBaseURL      = "http://localhost:5000"
	DefaultGeofabrikURL = "https://download.geofabrik.de"

	DefaultHealthTimeout = 2 * time.Minute
	healthPollInterval   = 2 * time.Second
)

// Options controls a setup run. Zero values fall back to the defaults above
// and the car profile.
type Options struct {
	Regions         []string
	Dir             string
	Profile         string
	SkipDownload    bool
	SkipProcessing  bool
	SkipHealthCheck bool
	Image           string
	BaseURL         string
	GeofabrikURL    string

	// HealthTimeout bounds the wait for a server started by this run.
	HealthTimeout time.Duration

	// Progress receives download progress bars; nil hides them.
	Progress io.Writer
	Log      logger.Logger
}

// Result summarizes a setup run. Files lists the extracts and graphs produced
// or found, in region order. Built holds the regions whose graphs are ready,
// even when a later phase failed. Server is the id of the container started
// for the health check, if any.
type Result struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Built   []Region `json:"built,omitempty"`
	Server  string   `json:"server,omitempty"`
}

// pipeline holds the collaborators of a setup run.
type pipeline struct {
	opts       Options
	resolver   Resolver
	downloader *Downloader
	runner     CommandRunner
	health     func(ctx context.Context) error
	poll       time.Duration
	log        logger.Logger
}

func withDefaults(opts Options) Options {
	if strings.TrimSpace(opts.Dir) == "" {
		opts.Dir = DefaultDir
	}
	if strings.TrimSpace(opts.Profile) == "" {
		opts.Profile = ProfileCar
	}
	if strings.TrimSpace(opts.Image) == "" {
		opts.Image = DefaultImage
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(opts.GeofabrikURL) == "" {
		opts.GeofabrikURL = DefaultGeofabrikURL
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.Log == nil {
		opts.Log = logger.NopLogger{}
	}
	return opts
}

func newPipeline(opts Options) *pipeline {
	opts = withDefaults(opts)
	client := osrm.NewClient(opts.BaseURL, httpclient.NewRestyClient(10*time.Second))
	return &pipeline{
		opts:       opts,
		resolver:   NewGeofabrikResolver(opts.GeofabrikURL, nil),
		downloader: NewDownloader(nil, opts.Progress),
		runner:     OSRunner{},
		health:     func(ctx context.Context) error { return CheckHealth(ctx, client) },
		poll:       healthPollInterval,
		log:        opts.Log,
	}
}

// Setup downloads, processes and health checks the requested regions. Each
// phase can be skipped. When graphs were built and nothing answers at
// BaseURL, the first built region is served from a detached container and
// polled until healthy or HealthTimeout passes. The returned error is nil
// exactly when Success is true.
func Setup(ctx context.Context, opts Options) (Result, error) {
	return newPipeline(opts).run(ctx)
}

// Download fetches extracts only.
func Download(ctx context.Context, regions []string, dir string) (Result, error) {
	return Setup(ctx, Options{
		Regions:         regions,
		Dir:             dir,
		SkipProcessing:  true,
		SkipHealthCheck: true,
	})
}

// Process builds routing graphs from extracts already present in opts.Dir.
func Process(ctx context.Context, regions []string, opts Options) (Result, error) {
	opts.Regions = regions
	opts.SkipDownload = true
	opts.SkipHealthCheck = true
	return Setup(ctx, opts)
}

func (p *pipeline) run(ctx context.Context) (Result, error) {
	res := Result{Files: []string{}}
	o := p.opts

	if len(o.Regions) == 0 && !(o.SkipDownload && o.SkipProcessing) {
		return res, errors.New("at least one region is required")
	}

	var proc *Processor
	if !o.SkipProcessing {
		var err error
		if proc, err = NewProcessor(p.runner, o.Image, o.Profile); err != nil {
			return res, err
		}
	}

	for _, name := range o.Regions {
		region, err := p.regionFor(ctx, name)
		if err != nil {
			return res, err
		}

		if !o.SkipDownload {
			path, fetched, err := p.downloader.Fetch(ctx, region, o.Dir)
			if err != nil {
				return res, err
			}
			p.log.InfoObj("extract ready", "setup_download", map[string]any{
				"region":     region.Name,
				"path":       path,
				"downloaded": fetched,
			})
			res.Files = append(res.Files, path)
		}

		if proc != nil {
			graph, err := proc.Process(ctx, o.Dir, region)
			if err != nil {
				return res, err
			}
			p.log.InfoObj("routing graph built", "setup_process", map[string]any{
				"region":  region.Name,
				"profile": o.Profile,
				"path":    graph,
			})
			res.Files = append(res.Files, graph)
			res.Built = append(res.Built, region)
		}
	}

	if !o.SkipHealthCheck {
		if err := p.checkHealth(ctx, proc, &res); err != nil {
			return res, err
		}
		p.log.InfoObj("osrm server healthy", "setup_health", o.BaseURL)
	}

	res.Success = true
	return res, nil
}

// regionFor resolves name against the mirror, or derives the local file
// names when the download phase is skipped.
func (p *pipeline) regionFor(ctx context.Context, name string) (Region, error) {
	if p.opts.SkipDownload {
		base := normalizeRegion(name)
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		if base == "" {
			return Region{}, fmt.Errorf("region name is empty")
		}
		return Region{Name: base}, nil
	}
	region, err := p.resolver.Resolve(ctx, name)
	if err != nil {
		return Region{}, fmt.Errorf("resolve region %q: %w", name, err)
	}
	return region, nil
}

// checkHealth probes BaseURL once. If that fails and this run built graphs,
// it starts osrm-routed for the first one and waits for it to answer.
func (p *pipeline) checkHealth(ctx context.Context, proc *Processor, res *Result) error {
	err := p.health(ctx)
	if err == nil || proc == nil || len(res.Built) == 0 {
		return err
	}

	port, perr := servePort(p.opts.BaseURL)
	if perr != nil {
		return errors.Join(err, perr)
	}
	region := res.Built[0]
	id, err := proc.Serve(ctx, p.opts.Dir, region, port)
	if err != nil {
		return err
	}
	res.Server = id
	p.log.InfoObj("osrm server started", "setup_serve", map[string]any{
		"region":    region.Name,
		"port":      port,
		"container": id,
	})
	return p.waitHealthy(ctx)
}

func (p *pipeline) waitHealthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.HealthTimeout)
	defer cancel()

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		err := p.health(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for osrm server: %w", err)
		case <-ticker.C:
		}
	}
}

// servePort returns the host port implied by baseURL.
func servePort(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if port := u.Port(); port != "" {
		return port, nil
	}
	if u.Scheme == "https" {
		return "443", nil
	}
	return "80", nil
}
