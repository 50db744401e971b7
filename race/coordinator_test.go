package race

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltgpu/volt/api"
)

// fakeMarket is an in-memory marketplace. Created instances start in
// loading; tests flip statuses to steer the race.
type fakeMarket struct {
	mu        sync.Mutex
	createErr map[string]error  // offer id -> forced creation failure
	statuses  map[string]string // instance id -> actual_status
	sshPorts  map[string]int
	creates   []string // offer ids, in request order
	deletes   []string // instance ids, in request order
	listErr   error
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		createErr: map[string]error{},
		statuses:  map[string]string{},
		sshPorts:  map[string]int{},
	}
}

// instanceID is the id the fake assigns to an instance created from an offer.
func instanceID(offerID string) string { return "i-" + offerID }

func (f *fakeMarket) CreateInstance(ctx context.Context, spec api.CreateInstanceSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, spec.OfferID)
	if err, ok := f.createErr[spec.OfferID]; ok {
		return "", err
	}
	id := instanceID(spec.OfferID)
	if _, ok := f.statuses[id]; !ok {
		f.statuses[id] = api.StatusLoading
	}
	return id, nil
}

func (f *fakeMarket) ListInstances(ctx context.Context) ([]api.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var instances []api.Instance
	for id, status := range f.statuses {
		inst := api.Instance{ID: id, Status: api.StatusRunning, ActualStatus: status}
		if status == api.StatusRunning {
			inst.SSHHost = "ssh." + id + ".example.com"
			inst.SSHPort = f.sshPorts[id]
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func (f *fakeMarket) DeleteInstance(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	delete(f.statuses, id)
	return nil
}

func (f *fakeMarket) setRunning(offerID string, sshPort int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[instanceID(offerID)] = api.StatusRunning
	f.sshPorts[instanceID(offerID)] = sshPort
}

func (f *fakeMarket) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

func testOffers(n int) []api.Offer {
	offers := make([]api.Offer, n)
	for i := range offers {
		offers[i] = api.Offer{
			ID:       fmt.Sprintf("o-%d", i+1),
			GPUName:  "RTX 4090",
			NumGPUs:  1,
			DPHTotal: 0.5 + float64(i)*0.1,
			Rentable: true,
		}
	}
	return offers
}

func testOptions() Options {
	return Options{
		DiskSize:     32,
		PollInterval: 5 * time.Millisecond,
		Timeout:      250 * time.Millisecond,
	}
}

func TestBuildCandidates(t *testing.T) {
	t.Run("CapsAtFive", func(t *testing.T) {
		candidates := BuildCandidates(testOffers(8), 0)
		require.Len(t, candidates, 5)
		for i, cand := range candidates {
			assert.Equal(t, fmt.Sprintf("o-%d", i+1), cand.Offer.ID)
			assert.Equal(t, StatusConnecting, cand.Status)
			assert.Equal(t, 0, cand.Progress)
			assert.Empty(t, cand.InstanceID)
		}
	})

	t.Run("FewerOffersThanRequested", func(t *testing.T) {
		assert.Len(t, BuildCandidates(testOffers(2), 5), 2)
	})

	t.Run("RequestAboveCapClamped", func(t *testing.T) {
		assert.Len(t, BuildCandidates(testOffers(10), 9), 5)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		assert.Empty(t, BuildCandidates(nil, 5))
	})
}

func TestRaceWinnerTakesAllOthersCancelled(t *testing.T) {
	market := newFakeMarket()
	market.setRunning("o-2", 2222)

	var lastView []Candidate
	var mu sync.Mutex
	opts := testOptions()
	opts.OnUpdate = func(views []Candidate) {
		mu.Lock()
		lastView = views
		mu.Unlock()
	}

	winner, err := New(market, opts).Run(context.Background(), testOffers(5))
	require.NoError(t, err)
	require.NotNil(t, winner)

	assert.Equal(t, instanceID("o-2"), winner.InstanceID)
	assert.Equal(t, "ssh.i-o-2.example.com", winner.SSHHost)
	assert.Equal(t, 2222, winner.SSHPort)
	assert.Equal(t, StatusConnected, winner.Candidate.Status)
	assert.Equal(t, 100, winner.Candidate.Progress)

	// The four losers are deletion-requested exactly once each.
	assert.Equal(t, 4, market.deleteCount())
	assert.NotContains(t, market.deletes, winner.InstanceID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lastView, 5)
	var connected int
	for _, cand := range lastView {
		switch cand.Status {
		case StatusConnected:
			connected++
		case StatusCancelled:
		default:
			t.Errorf("candidate %s finished in state %s", cand.Offer.ID, cand.Status)
		}
	}
	assert.Equal(t, 1, connected)
}

func TestRaceIssuesOneCreatePerCandidate(t *testing.T) {
	market := newFakeMarket()
	market.setRunning("o-1", 22)

	_, err := New(market, testOptions()).Run(context.Background(), testOffers(3))
	require.NoError(t, err)

	assert.Len(t, market.creates, 3)
	assert.ElementsMatch(t, []string{"o-1", "o-2", "o-3"}, market.creates)
}

func TestCreationFailureDoesNotAbortRace(t *testing.T) {
	market := newFakeMarket()
	market.createErr["o-3"] = api.Error{Code: 402, Message: "account balance too low"}
	market.setRunning("o-1", 22)

	var mu sync.Mutex
	var lastView []Candidate
	opts := testOptions()
	opts.OnUpdate = func(views []Candidate) {
		mu.Lock()
		lastView = views
		mu.Unlock()
	}

	winner, err := New(market, opts).Run(context.Background(), testOffers(5))
	require.NoError(t, err)
	assert.Equal(t, instanceID("o-1"), winner.InstanceID)

	mu.Lock()
	defer mu.Unlock()
	failed := lastView[2]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "insufficient balance", failed.ErrorMessage)
	assert.Empty(t, failed.InstanceID)

	// Four created, one kept, three deleted; the failed candidate never
	// produced an instance to clean up.
	assert.Equal(t, 3, market.deleteCount())
}

func TestAllCreationsFailedEndsImmediately(t *testing.T) {
	market := newFakeMarket()
	for _, offer := range testOffers(5) {
		market.createErr[offer.ID] = api.Error{Code: 503, Message: "machine unavailable"}
	}

	opts := testOptions()
	opts.Timeout = 10 * time.Second // the race must not wait this out

	start := time.Now()
	winner, err := New(market, opts).Run(context.Background(), testOffers(5))
	assert.Nil(t, winner)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, market.deleteCount())
}

func TestTimeoutCleansUpAllCandidates(t *testing.T) {
	market := newFakeMarket() // everything stays in loading forever

	start := time.Now()
	winner, err := New(market, testOptions()).Run(context.Background(), testOffers(3))
	assert.Nil(t, winner)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, 3, market.deleteCount())
}

func TestSingleCandidateTimeout(t *testing.T) {
	market := newFakeMarket()

	winner, err := New(market, testOptions()).Run(context.Background(), testOffers(1))
	assert.Nil(t, winner)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []string{instanceID("o-1")}, market.deletes)
}

func TestCancellationDestroysCreatedInstances(t *testing.T) {
	market := newFakeMarket()

	ctx, cancel := context.WithCancel(context.Background())
	created := make(chan struct{}, 1)
	opts := testOptions()
	opts.Timeout = 10 * time.Second
	opts.OnUpdate = func(views []Candidate) {
		for _, cand := range views {
			if cand.InstanceID == "" && cand.Status != StatusFailed {
				return
			}
		}
		select {
		case created <- struct{}{}:
		default:
		}
	}

	go func() {
		<-created
		cancel()
	}()

	winner, err := New(market, opts).Run(ctx, testOffers(4))
	assert.Nil(t, winner)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 4, market.deleteCount())
}

func TestTwoRunningInSameTickFirstIndexWins(t *testing.T) {
	market := newFakeMarket()
	market.setRunning("o-2", 22)
	market.setRunning("o-4", 44)

	winner, err := New(market, testOptions()).Run(context.Background(), testOffers(5))
	require.NoError(t, err)
	assert.Equal(t, instanceID("o-2"), winner.InstanceID)
	assert.Contains(t, market.deletes, instanceID("o-4"))
}

func TestProgressIsMonotonic(t *testing.T) {
	market := newFakeMarket()

	var mu sync.Mutex
	high := map[string]int{}
	opts := testOptions()
	opts.Timeout = 100 * time.Millisecond
	opts.OnUpdate = func(views []Candidate) {
		mu.Lock()
		defer mu.Unlock()
		for _, cand := range views {
			if cand.Progress < high[cand.Offer.ID] {
				t.Errorf("progress of %s dropped from %d to %d",
					cand.Offer.ID, high[cand.Offer.ID], cand.Progress)
			}
			high[cand.Offer.ID] = cand.Progress
		}
	}

	_, err := New(market, opts).Run(context.Background(), testOffers(2))
	assert.ErrorIs(t, err, ErrTimeout)

	mu.Lock()
	defer mu.Unlock()
	for id, p := range high {
		assert.LessOrEqual(t, p, 90, "loading candidate %s must stay below 90", id)
		assert.GreaterOrEqual(t, p, 30, "created candidate %s should have progressed", id)
	}
}

func TestPollFailuresAreRetried(t *testing.T) {
	market := newFakeMarket()
	market.setRunning("o-1", 22)
	market.listErr = api.Error{Code: 500, Message: "flaky"}

	// Let the first few polls fail, then recover.
	go func() {
		time.Sleep(30 * time.Millisecond)
		market.mu.Lock()
		market.listErr = nil
		market.mu.Unlock()
	}()

	winner, err := New(market, testOptions()).Run(context.Background(), testOffers(1))
	require.NoError(t, err)
	assert.Equal(t, instanceID("o-1"), winner.InstanceID)
}
