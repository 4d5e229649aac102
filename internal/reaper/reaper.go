package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickshare/quickshare/internal/session"
	"github.com/quickshare/quickshare/internal/storage"
)

// Reaper is the background sweep that keeps the session registry and the
// upload directory from accumulating expired or orphaned data. It runs two
// independent passes each interval: a registry sweep driven by session age,
// and a disk sweep driven by file modification time and the stored-name
// pattern. The disk sweep needs no registry access at all, which makes it a
// second line of defense when in-memory bookkeeping diverges from disk
// reality.
type Reaper struct {
	registry *session.Registry
	blobs    storage.BlobStore
	interval time.Duration
	ttl      time.Duration
}

// New creates a reaper sweeping at the given interval with the given
// steady-state TTL.
func New(registry *session.Registry, blobs storage.BlobStore, interval, ttl time.Duration) *Reaper {
	return &Reaper{
		registry: registry,
		blobs:    blobs,
		interval: interval,
		ttl:      ttl,
	}
}

// Run executes sweeps until the context is cancelled. No sweep failure is
// ever fatal: errors are logged and the loop waits for the next tick.
func (r *Reaper) Run(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Dur("ttl", r.ttl).Msg("reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one registry sweep followed by one disk sweep.
func (r *Reaper) Sweep(ctx context.Context) {
	r.sweepRegistry(ctx)
	r.sweepDisk(ctx, time.Now(), r.ttl)
}

// StartupSweep runs once, synchronously, before the service accepts
// requests. With no registry to corroborate freshness it applies the more
// conservative startup staleness bound to everything on disk, recovering
// space from files left over by a previous process lifetime.
func (r *Reaper) StartupSweep(ctx context.Context, maxAge time.Duration) {
	now := time.Now()
	blobs, err := r.blobs.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("startup sweep: failed to list upload directory")
		return
	}

	deleted := 0
	for _, blob := range blobs {
		age := now.Sub(blob.ModTime)
		if age <= maxAge {
			continue
		}
		if err := r.blobs.Delete(ctx, blob.Name); err != nil {
			log.Error().Err(err).Str("name", blob.Name).Msg("startup sweep: delete failed")
			continue
		}
		deleted++
		log.Info().Str("name", blob.Name).Dur("age", age).Msg("startup sweep: deleted old file")
	}

	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("startup sweep complete")
	}
}

// sweepRegistry removes expired sessions and then deletes their blobs. The
// registry lock is held only inside CollectExpired; the disk work happens
// after it is released.
func (r *Reaper) sweepRegistry(ctx context.Context) {
	expired := r.registry.CollectExpired(time.Now())
	for _, s := range expired {
		for _, f := range s.Files {
			if err := r.blobs.Delete(ctx, f.StoredName); err != nil {
				log.Error().Err(err).Str("code", s.Code).Str("name", f.StoredName).Msg("failed to delete blob of expired session")
			}
		}
		log.Info().Str("code", s.Code).Int("files", len(s.Files)).Msg("expired session reaped")
	}
}

// sweepDisk walks the upload directory and deletes files that are past the
// TTL or do not match the stored-name pattern. A failed delete is logged
// and skipped; it never aborts the sweep.
func (r *Reaper) sweepDisk(ctx context.Context, now time.Time, ttl time.Duration) {
	blobs, err := r.blobs.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("disk sweep: failed to list upload directory")
		return
	}

	deletedExpired, deletedOrphan := 0, 0
	for _, blob := range blobs {
		age := now.Sub(blob.ModTime)
		switch {
		case age > ttl:
			if err := r.blobs.Delete(ctx, blob.Name); err != nil {
				log.Error().Err(err).Str("name", blob.Name).Msg("disk sweep: failed to delete expired file")
				continue
			}
			deletedExpired++
			log.Info().Str("name", blob.Name).Dur("age", age).Msg("disk sweep: deleted expired file")
		case !storage.MatchesPattern(blob.Name):
			if err := r.blobs.Delete(ctx, blob.Name); err != nil {
				log.Error().Err(err).Str("name", blob.Name).Msg("disk sweep: failed to delete orphan file")
				continue
			}
			deletedOrphan++
			log.Info().Str("name", blob.Name).Msg("disk sweep: deleted orphan file")
		}
	}

	if deletedExpired > 0 || deletedOrphan > 0 {
		log.Info().Int("expired", deletedExpired).Int("orphans", deletedOrphan).Msg("disk sweep complete")
	}
}
