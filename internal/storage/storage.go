package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store remembers the last published result fingerprint per job.
type Store interface {
	Close() error
	// Unchanged reports whether fingerprint matches the live entry for jobID.
	Unchanged(jobID, fingerprint string) (bool, error)
	Record(jobID, fingerprint string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// noopStore never remembers anything, so every result is treated as new.
type noopStore struct{}

func (noopStore) Close() error                           { return nil }
func (noopStore) Unchanged(string, string) (bool, error) { return false, nil }
func (noopStore) Record(string, string) error            { return nil }
