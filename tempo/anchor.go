package tempo

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/tonalhq/woodshed/logging"
)

// Anchor is the shared downbeat reference: the audio-clock time of beat "1"
// and the bar length defining the periodic downbeat grid from it.
type Anchor struct {
	Origin    float64 `json:"origin"`     // audio-clock time of the first downbeat
	BarLength float64 `json:"bar_length"` // seconds per bar
}

// AnchorRegistry is the shared downbeat state between concurrently running
// scheduler instances. The first instance to start claims ownership and
// publishes its anchor; instances starting while an anchor exists align their
// first event to the next shared downbeat instead of starting immediately.
// Ownership is released when the owning instance stops, and re-elected
// implicitly by whichever instance starts next.
//
// The registry is injected into each scheduler rather than held as package
// state so lifecycles stay explicit and testable.
type AnchorRegistry struct {
	mu     sync.Mutex
	owner  uuid.UUID
	anchor Anchor
	held   bool

	log logging.Logger
}

// NewAnchorRegistry creates an empty registry
func NewAnchorRegistry() *AnchorRegistry {
	return &AnchorRegistry{
		log: logging.WithFields(logging.Fields{"component": "anchor_registry"}),
	}
}

// Claim attempts to take ownership and publish an anchor. Returns true if
// the caller is now the owner; false if another instance already holds it.
func (r *AnchorRegistry) Claim(id uuid.UUID, anchor Anchor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held && r.owner != id {
		return false
	}

	r.owner = id
	r.anchor = anchor
	r.held = true
	r.log.Debug("anchor claimed", logging.Fields{
		"owner":      id.String(),
		"origin":     anchor.Origin,
		"bar_length": anchor.BarLength,
	})
	return true
}

// Release clears the anchor if id is the current owner
func (r *AnchorRegistry) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.held || r.owner != id {
		return
	}

	r.held = false
	r.owner = uuid.UUID{}
	r.log.Debug("anchor released", logging.Fields{"owner": id.String()})
}

// Anchor returns the published anchor, if any
func (r *AnchorRegistry) Anchor() (Anchor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anchor, r.held
}

// NextDownbeat computes the first shared downbeat at or after now. Returns
// false when no anchor is published.
func (r *AnchorRegistry) NextDownbeat(now float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.held || r.anchor.BarLength <= 0 {
		return 0, false
	}

	if now <= r.anchor.Origin {
		return r.anchor.Origin, true
	}

	bars := math.Ceil((now - r.anchor.Origin) / r.anchor.BarLength)
	return r.anchor.Origin + bars*r.anchor.BarLength, true
}
