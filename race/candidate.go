// Package race implements the provisioning race: several candidate offers
// are provisioned simultaneously, the first machine to come up is kept, and
// every other instance created along the way is destroyed.
package race

import "github.com/voltgpu/volt/api"

// MaxCandidates caps how many offers a single race will provision at once.
const MaxCandidates = 5

// Status is a candidate's position in the race lifecycle.
type Status string

const (
	// StatusConnecting covers both the pre-creation phase and the wait for
	// the created machine to boot.
	StatusConnecting Status = "connecting"
	// StatusCreating means the creation request is in flight.
	StatusCreating Status = "creating"
	// StatusFailed means the creation request was rejected; the candidate
	// holds no instance and drops out of polling.
	StatusFailed Status = "failed"
	// StatusConnected marks the race winner. At most one candidate per race
	// ever reaches this state.
	StatusConnected Status = "connected"
	// StatusCancelled marks a loser whose instance is being torn down.
	StatusCancelled Status = "cancelled"
)

// Candidate is one offer entered into a race. All fields are owned by the
// coordinator goroutine; observers receive copies.
type Candidate struct {
	Offer        api.Offer
	Status       Status
	Progress     int // 0-100, non-decreasing until a terminal state
	InstanceID   string
	ErrorMessage string
}

// terminal reports whether the candidate can make no further transitions.
func (c *Candidate) terminal() bool {
	switch c.Status {
	case StatusFailed, StatusConnected, StatusCancelled:
		return true
	}
	return false
}

// advance raises the candidate's progress, never lowering it.
func (c *Candidate) advance(progress int) {
	if progress > c.Progress {
		c.Progress = progress
	}
}

// BuildCandidates selects the first min(n, len(offers)) offers as race
// candidates. Offers arrive ranked by the marketplace (cheapest first), so
// candidate order is also preference order. n values outside [1,
// MaxCandidates] are clamped to MaxCandidates.
func BuildCandidates(offers []api.Offer, n int) []*Candidate {
	if n <= 0 || n > MaxCandidates {
		n = MaxCandidates
	}
	if len(offers) < n {
		n = len(offers)
	}

	candidates := make([]*Candidate, 0, n)
	for _, offer := range offers[:n] {
		candidates = append(candidates, &Candidate{
			Offer:  offer,
			Status: StatusConnecting,
		})
	}
	return candidates
}
