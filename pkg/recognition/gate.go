// Package recognition runs live classification against a camera stream
// and decides when a newly recognized class should be announced.
package recognition

import (
	"sync"
	"time"

	"github.com/teslashibe/go-cuecam/pkg/classify"
)

// DefaultThreshold is the minimum top confidence for an announcement.
const DefaultThreshold = 0.85

// Policy controls the confidence gate.
type Policy struct {
	Threshold float64 `json:"threshold"`

	// ResetOnLowConfidence forgets the last announced label when the top
	// result drops below Threshold, so the same class can announce again
	// after a dip. Off by default.
	ResetOnLowConfidence bool `json:"reset_on_low_confidence"`
}

// DefaultPolicy returns the gate's default policy.
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold}
}

// Announcement marks a class that has just become the confidently
// recognized one.
type Announcement struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`

	// Cue reports whether the announcement started an audio cue.
	Cue bool `json:"cue"`
}

// Gate turns ranked results into class-change announcements.
type Gate struct {
	busy func() bool

	mu     sync.Mutex
	policy Policy
	last   string
}

// NewGate creates a gate. busy reports whether a cue is playing; while it
// returns true results are ignored. A nil busy is never busy.
func NewGate(policy Policy, busy func() bool) *Gate {
	if busy == nil {
		busy = func() bool { return false }
	}
	return &Gate{policy: policy, busy: busy}
}

// Evaluate inspects preds and returns an announcement when the top result
// clears the threshold with a label different from the last announced one.
func (g *Gate) Evaluate(preds classify.Predictions) (Announcement, bool) {
	top, ok := preds.Top()
	if !ok || g.busy() {
		return Announcement{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if top.Confidence < g.policy.Threshold {
		if g.policy.ResetOnLowConfidence {
			g.last = ""
		}
		return Announcement{}, false
	}
	if top.Label == g.last {
		return Announcement{}, false
	}

	g.last = top.Label
	return Announcement{Label: top.Label, Confidence: top.Confidence, At: time.Now()}, true
}

// Last returns the last announced label, empty if none.
func (g *Gate) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Reset forgets the last announced label.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.last = ""
	g.mu.Unlock()
}

// Policy returns the current policy.
func (g *Gate) Policy() Policy {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.policy
}

// SetPolicy replaces the policy. The last announced label is kept.
func (g *Gate) SetPolicy(p Policy) {
	g.mu.Lock()
	g.policy = p
	g.mu.Unlock()
}
