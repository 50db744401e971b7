package race

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/voltgpu/volt/api"
)

// Default race timings. The poll interval trades API load against how
// quickly a winner is noticed; the timeout bounds how long losing money on
// idle candidates is acceptable.
const (
	DefaultPollInterval   = 3 * time.Second
	DefaultTimeout        = 5 * time.Minute
	defaultCleanupTimeout = 30 * time.Second
)

var (
	// ErrTimeout is returned when no candidate reaches running before the
	// race deadline. All created instances have been torn down.
	ErrTimeout = errors.New("no machine came up before the race deadline")
	// ErrNoCandidates is returned when every creation request failed and
	// there is nothing left to poll.
	ErrNoCandidates = errors.New("every candidate failed to provision")
	// ErrCancelled is returned when the caller's context ends the race
	// before a winner is found. All created instances have been torn down.
	ErrCancelled = errors.New("race cancelled")
)

// MarketAPI is the slice of the marketplace the race needs. *client.Client
// satisfies it through a thin adapter; tests substitute a fake.
type MarketAPI interface {
	CreateInstance(ctx context.Context, spec api.CreateInstanceSpec) (string, error)
	ListInstances(ctx context.Context) ([]api.Instance, error)
	DeleteInstance(ctx context.Context, id string) error
}

// Options configures a Coordinator.
type Options struct {
	// DiskSize is the disk to request per instance, in GB. Zero defers to
	// the server default.
	DiskSize float64
	// Label prefixes the labels of created instances.
	Label string
	// Candidates caps how many offers enter the race; clamped to
	// [1, MaxCandidates].
	Candidates int

	PollInterval time.Duration // defaults to DefaultPollInterval
	Timeout      time.Duration // defaults to DefaultTimeout

	Logger  *slog.Logger
	Journal *Journal

	// OnUpdate, if set, receives a snapshot of all candidates after every
	// state change. It is called from the coordinator's own goroutine and
	// must not block for long.
	OnUpdate func([]Candidate)
}

// Winner is the race result: the one candidate whose machine reached
// running, with its connection details. The caller owns the instance from
// here on.
type Winner struct {
	Candidate  Candidate
	InstanceID string
	SSHHost    string
	SSHPort    int
	DPHTotal   float64
}

// Coordinator runs provisioning races. All race state is confined to the
// goroutine that calls Run; creation results and poll ticks arrive as
// events, which is what makes "exactly one winner" a structural guarantee
// rather than a flag discipline.
type Coordinator struct {
	market MarketAPI
	opts   Options
	logger *slog.Logger
}

// New creates a race coordinator. Zero-valued timings in opts take the
// package defaults.
func New(market MarketAPI, opts Options) *Coordinator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Label == "" {
		opts.Label = "volt-race"
	}
	return &Coordinator{market: market, opts: opts, logger: ensureLogger(opts.Logger)}
}

// createResult is the event a creation goroutine reports back.
type createResult struct {
	index      int
	instanceID string
	err        error
}

// Run races the top offers to a running machine. It returns the winner, or
// ErrTimeout, ErrNoCandidates, or ErrCancelled. On every return path all
// created instances except a returned winner have been deletion-requested
// and the registry is empty.
func (c *Coordinator) Run(ctx context.Context, offers []api.Offer) (*Winner, error) {
	candidates := BuildCandidates(offers, c.opts.Candidates)
	if len(candidates) == 0 {
		return nil, errors.New("no offers to race")
	}

	raceID := uuid.NewString()[:8]
	registry := NewRegistry(c.logger, c.opts.Journal)

	// Creation requests may outlive the race loop; cancelling this context
	// aborts the ones still in flight so the drain below stays short.
	createCtx, cancelCreates := context.WithCancel(context.Background())
	defer cancelCreates()

	results := make(chan createResult, len(candidates))
	for i, cand := range candidates {
		cand.Status = StatusCreating
		go c.create(createCtx, raceID, i, cand.Offer, results)
	}
	c.notify(candidates)
	c.logger.Info("race started", "race", raceID, "candidates", len(candidates))

	pending := len(candidates)

	deadline := time.NewTimer(c.opts.Timeout)
	defer deadline.Stop()
	poll := time.NewTimer(c.opts.PollInterval)
	defer poll.Stop()

	// abort tears down everything created so far and exits with err.
	abort := func(err error) (*Winner, error) {
		cancelCreates()
		c.drain(results, pending, candidates, raceID, registry)
		markRacingCancelled(candidates)
		c.notify(candidates)
		c.cleanup(registry)
		c.logger.Info("race ended", "race", raceID, "err", err)
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return abort(ErrCancelled)

		case res := <-results:
			pending--
			c.applyCreateResult(res, candidates, raceID, registry, false)
			c.notify(candidates)
			if pending == 0 && allFailed(candidates) {
				// Nothing was created and nothing is pollable; waiting out
				// the deadline would only delay the bad news.
				c.logger.Info("race ended", "race", raceID, "err", ErrNoCandidates)
				return nil, ErrNoCandidates
			}

		case <-deadline.C:
			return abort(ErrTimeout)

		case <-poll.C:
			winner := c.pollOnce(ctx, candidates)
			c.notify(candidates)
			if winner == nil {
				poll.Reset(c.opts.PollInterval)
				continue
			}

			cancelCreates()
			c.drain(results, pending, candidates, raceID, registry)
			markRacingCancelled(candidates)
			c.notify(candidates)
			c.cleanup(registry, winner.InstanceID)
			c.logger.Info("race won", "race", raceID,
				"instance", winner.InstanceID, "gpu", winner.Candidate.Offer.GPUName)
			return winner, nil
		}
	}
}

func (c *Coordinator) create(
	ctx context.Context,
	raceID string,
	index int,
	offer api.Offer,
	results chan<- createResult,
) {
	id, err := c.market.CreateInstance(ctx, api.CreateInstanceSpec{
		OfferID:  offer.ID,
		DiskSize: c.opts.DiskSize,
		Label:    fmt.Sprintf("%s-%s-%d", c.opts.Label, raceID, index),
	})
	results <- createResult{index: index, instanceID: id, err: err}
}

// applyCreateResult transitions one candidate on its creation outcome. Late
// results (arriving after the race is decided) register the instance for
// teardown but leave the candidate cancelled.
func (c *Coordinator) applyCreateResult(
	res createResult,
	candidates []*Candidate,
	raceID string,
	registry *Registry,
	late bool,
) {
	cand := candidates[res.index]
	if res.err != nil {
		cand.Status = StatusFailed
		cand.ErrorMessage = failureMessage(res.err)
		c.logger.Warn("candidate creation failed",
			"race", raceID, "offer", cand.Offer.ID, "err", res.err)
		return
	}

	if err := c.opts.Journal.Create(raceID, res.instanceID, cand.Offer.ID); err != nil {
		// The journal is a safety net, not a gate; the race goes on.
		c.logger.Warn("failed to journal created instance",
			"instance", res.instanceID, "err", err)
	}
	registry.Add(res.index, res.instanceID, cand.Offer.ID)
	cand.InstanceID = res.instanceID
	if late {
		cand.Status = StatusCancelled
		return
	}
	cand.Status = StatusConnecting
	cand.advance(30)
}

// pollOnce fetches the instance list and advances every tracked candidate.
// The first candidate in index order seen running becomes the winner; if
// two machines come up within the same tick, the earlier (cheaper) one
// deliberately wins.
func (c *Coordinator) pollOnce(ctx context.Context, candidates []*Candidate) *Winner {
	instances, err := c.market.ListInstances(ctx)
	if err != nil {
		// Transient; the next tick retries.
		c.logger.Warn("instance poll failed", "err", err)
		return nil
	}

	byID := make(map[string]api.Instance, len(instances))
	for _, inst := range instances {
		byID[inst.ID] = inst
	}

	for _, cand := range candidates {
		if cand.InstanceID == "" || cand.terminal() {
			continue
		}
		inst, ok := byID[cand.InstanceID]
		if !ok {
			continue
		}
		switch inst.ActualStatus {
		case api.StatusLoading:
			next := cand.Progress + 10
			if next > 90 {
				next = 90
			}
			cand.advance(next)
		case api.StatusRunning:
			cand.Status = StatusConnected
			cand.advance(100)
			return &Winner{
				Candidate:  *cand,
				InstanceID: cand.InstanceID,
				SSHHost:    inst.SSHHost,
				SSHPort:    inst.SSHPort,
				DPHTotal:   inst.DPHTotal,
			}
		}
	}
	return nil
}

// drain collects the creation results still outstanding so every instance
// that was actually provisioned ends up in the registry before teardown.
func (c *Coordinator) drain(
	results <-chan createResult,
	pending int,
	candidates []*Candidate,
	raceID string,
	registry *Registry,
) {
	for i := 0; i < pending; i++ {
		res := <-results
		c.applyCreateResult(res, candidates, raceID, registry, true)
	}
}

// cleanup destroys everything in the registry except keep. The race context
// is usually already dead here, so deletions run on their own deadline.
func (c *Coordinator) cleanup(registry *Registry, keep ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCleanupTimeout)
	defer cancel()
	registry.Purge(ctx, c.market, keep...)
}

func (c *Coordinator) notify(candidates []*Candidate) {
	if c.opts.OnUpdate == nil {
		return
	}
	views := make([]Candidate, len(candidates))
	for i, cand := range candidates {
		views[i] = *cand
	}
	c.opts.OnUpdate(views)
}

func markRacingCancelled(candidates []*Candidate) {
	for _, cand := range candidates {
		if !cand.terminal() {
			cand.Status = StatusCancelled
		}
	}
}

func allFailed(candidates []*Candidate) bool {
	for _, cand := range candidates {
		if cand.Status != StatusFailed {
			return false
		}
	}
	return true
}

// failureMessage maps a creation error to the short inline text shown next
// to a failed candidate.
func failureMessage(err error) string {
	var apiErr api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return api.Error{Message: err.Error()}.UserMessage()
}
