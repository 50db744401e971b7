package race

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// entry records ownership of one instance provisioned during a race.
type entry struct {
	CandidateIndex int
	InstanceID     string
	OfferID        string
}

// Registry tracks every instance actually created during a race so that
// teardown can account for all of them, regardless of outcome. It is the
// only record standing between a cancelled race and orphaned billing.
type Registry struct {
	mu      sync.Mutex
	entries []entry
	logger  *slog.Logger
	journal *Journal
}

// NewRegistry returns an empty registry. A nil logger disables logging; a
// nil journal disables intent logging.
func NewRegistry(logger *slog.Logger, journal *Journal) *Registry {
	return &Registry{logger: ensureLogger(logger), journal: journal}
}

// Add records a created instance.
func (r *Registry) Add(candidateIndex int, instanceID, offerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{
		CandidateIndex: candidateIndex,
		InstanceID:     instanceID,
		OfferID:        offerID,
	})
}

// Len returns the number of tracked instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Purge issues a deletion for every tracked instance except those listed in
// keep, then leaves the registry empty. Entries are drained up front so a
// second teardown path purging concurrently issues no duplicate deletions.
// Deletion failures are logged, not retried.
func (r *Registry) Purge(ctx context.Context, market MarketAPI, keep ...string) int {
	r.mu.Lock()
	drained := r.entries
	r.entries = nil
	r.mu.Unlock()

	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	var issued int
	for _, e := range drained {
		if kept[e.InstanceID] {
			if err := r.journal.Release(e.InstanceID, true); err != nil {
				r.logger.Warn("failed to journal kept instance",
					"instance", e.InstanceID, "err", err)
			}
			continue
		}
		issued++
		if err := market.DeleteInstance(ctx, e.InstanceID); err != nil {
			// The intent stays open in the journal so a later reconcile can
			// retry the deletion.
			r.logger.Warn("failed to delete raced instance",
				"instance", e.InstanceID, "offer", e.OfferID, "err", err)
			continue
		}
		if err := r.journal.Release(e.InstanceID, false); err != nil {
			r.logger.Warn("failed to journal released instance",
				"instance", e.InstanceID, "err", err)
		}
	}
	return issued
}

func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
