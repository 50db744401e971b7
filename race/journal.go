package race

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Journal is an append-only intent log of instances created by races. A
// create record is written as soon as the marketplace confirms a creation
// and a release record once the instance is deleted or deliberately kept,
// so a crashed race leaves a trail that Reconcile can settle. A nil
// *Journal is valid and records nothing.
type Journal struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// Record is one journal line.
type Record struct {
	Op         string    `json:"op"` // "create" or "release"
	RaceID     string    `json:"race_id,omitempty"`
	InstanceID string    `json:"instance_id"`
	OfferID    string    `json:"offer_id,omitempty"`
	Kept       bool      `json:"kept,omitempty"`
	Time       time.Time `json:"time"`
}

// OpenJournal binds a journal to a file path. The file is created lazily on
// first write.
func OpenJournal(path string, logger *slog.Logger) *Journal {
	return &Journal{path: path, logger: ensureLogger(logger)}
}

// Create records that an instance now exists and is owned by a race.
func (j *Journal) Create(raceID, instanceID, offerID string) error {
	if j == nil {
		return nil
	}
	return j.append(Record{
		Op:         "create",
		RaceID:     raceID,
		InstanceID: instanceID,
		OfferID:    offerID,
		Time:       time.Now().UTC(),
	})
}

// Release records that an instance was deleted, or kept as a race winner.
func (j *Journal) Release(instanceID string, kept bool) error {
	if j == nil {
		return nil
	}
	return j.append(Record{
		Op:         "release",
		InstanceID: instanceID,
		Kept:       kept,
		Time:       time.Now().UTC(),
	})
}

// Unreleased returns the create records with no matching release, oldest
// first. A missing journal file yields an empty slice.
func (j *Journal) Unreleased() ([]Record, error) {
	if j == nil {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open race journal")
	}
	defer f.Close()

	creates := map[string]Record{}
	var order []string
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			// A torn final line means the process died mid-write; what we
			// decoded so far is still usable.
			j.logger.Warn("race journal truncated", "path", j.path, "err", err)
			break
		}
		switch rec.Op {
		case "create":
			if _, ok := creates[rec.InstanceID]; !ok {
				order = append(order, rec.InstanceID)
			}
			creates[rec.InstanceID] = rec
		case "release":
			delete(creates, rec.InstanceID)
		}
	}

	var open []Record
	for _, id := range order {
		if rec, ok := creates[id]; ok {
			open = append(open, rec)
		}
	}
	return open, nil
}

// Compact rewrites the journal to contain only unreleased intents, dropping
// settled history.
func (j *Journal) Compact() error {
	if j == nil {
		return nil
	}
	open, err := j.Unreleased()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if len(open) == 0 {
		err := os.Remove(j.path)
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to remove race journal")
	}

	tmp := j.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to rewrite race journal")
	}
	enc := json.NewEncoder(f)
	for _, rec := range open {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return errors.Wrap(os.Rename(tmp, j.path), "failed to replace race journal")
}

func (j *Journal) append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to open race journal")
	}
	defer f.Close()

	return errors.Wrap(json.NewEncoder(f).Encode(rec), "failed to append race journal")
}

// Reconcile settles journal intents left behind by a crashed race: any
// unreleased instance still alive on the marketplace is deleted, intents
// for instances the marketplace no longer knows are dropped, and the
// journal is compacted. It returns the ids of instances it deleted.
func Reconcile(ctx context.Context, journal *Journal, market MarketAPI) ([]string, error) {
	open, err := journal.Unreleased()
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	instances, err := market.ListInstances(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list instances")
	}
	live := make(map[string]bool, len(instances))
	for _, inst := range instances {
		live[inst.ID] = true
	}

	var deleted []string
	for _, rec := range open {
		if !live[rec.InstanceID] {
			// Already gone; settle the intent.
			if err := journal.Release(rec.InstanceID, false); err != nil {
				return deleted, err
			}
			continue
		}
		if err := market.DeleteInstance(ctx, rec.InstanceID); err != nil {
			// Leave the intent open so the next reconcile retries it.
			journal.logger.Warn("failed to delete orphaned instance",
				"instance", rec.InstanceID, "err", err)
			continue
		}
		if err := journal.Release(rec.InstanceID, false); err != nil {
			return deleted, err
		}
		deleted = append(deleted, rec.InstanceID)
	}

	return deleted, journal.Compact()
}
