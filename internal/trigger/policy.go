// Package trigger decides when a frame with enough nearby people should fire
// an external action, enforcing a cooldown between fires.
package trigger

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	"github.com/ayusman/proxiwatch/internal/distance"
)

// DefaultCooldown is the minimum time between two fires.
const DefaultCooldown = 5 * time.Second

// State is the policy state derived from the last fire time.
type State int

const (
	// Idle means the next qualifying frame will fire.
	Idle State = iota
	// Cooling means a fire happened within the cooldown window.
	Cooling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Cooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// Event describes a fired trigger.
type Event struct {
	Time        time.Time `json:"time"`
	PersonCount int       `json:"person_count"`
	CloseCount  int       `json:"close_count"`
}

// Action is the side effect run when the trigger fires.
type Action func(ctx context.Context, ev Event) error

// Classifier decides whether a detection counts as close.
//
// With no TriggerDistance every detection is close, so triggering works
// without calibration. A detection without a distance estimate (no focal
// length, or a zero-width box) is also close.
type Classifier struct {
	TriggerDistance *float64
}

// IsClose reports whether a detection with estimate est is close.
func (c Classifier) IsClose(est distance.Estimate) bool {
	if c.TriggerDistance == nil || !est.OK {
		return true
	}
	return est.Centimeters <= *c.TriggerDistance
}

// CountClose returns how many estimates are close.
func (c Classifier) CountClose(estimates []distance.Estimate) int {
	return lo.CountBy(estimates, c.IsClose)
}

// Config holds the firing parameters.
type Config struct {
	// TriggerCount is the minimum number of close people. Nil means every
	// frame qualifies and only the cooldown limits firing.
	TriggerCount *int
	// Cooldown is the minimum time between fires.
	Cooldown time.Duration
}

// Policy is the trigger state machine. It is not safe for concurrent use;
// the frame loop owns it.
type Policy struct {
	config      Config
	action      Action
	clock       clock.Clock
	lastTrigger time.Time
	fired       bool
}

// NewPolicy creates a Policy. A nil action fires without side effects and a
// nil clock uses wall time.
func NewPolicy(config Config, action Action, clk clock.Clock) *Policy {
	if clk == nil {
		clk = clock.New()
	}
	if config.Cooldown < 0 {
		config.Cooldown = 0
	}
	return &Policy{
		config: config,
		action: action,
		clock:  clk,
	}
}

// Qualifies reports whether closeCount meets the configured count. Without
// a count every frame qualifies.
func (p *Policy) Qualifies(closeCount int) bool {
	if p.config.TriggerCount == nil {
		return true
	}
	return closeCount >= *p.config.TriggerCount
}

// Ready reports whether the cooldown has elapsed at now.
func (p *Policy) Ready(now time.Time) bool {
	return !p.fired || now.Sub(p.lastTrigger) > p.config.Cooldown
}

// State returns Idle or Cooling for the current time.
func (p *Policy) State() State {
	if p.Ready(p.clock.Now()) {
		return Idle
	}
	return Cooling
}

// LastTrigger returns the time of the last fire and whether there was one.
func (p *Policy) LastTrigger() (time.Time, bool) {
	return p.lastTrigger, p.fired
}

// Evaluate checks one frame. When the frame qualifies and the cooldown has
// elapsed it runs the action and records the fire time, even if the action
// fails; the action error is returned with fired set to true.
func (p *Policy) Evaluate(ctx context.Context, personCount, closeCount int) (bool, error) {
	now := p.clock.Now()
	if !p.Qualifies(closeCount) || !p.Ready(now) {
		return false, nil
	}

	p.lastTrigger = now
	p.fired = true

	if p.action == nil {
		return true, nil
	}
	return true, p.action(ctx, Event{
		Time:        now,
		PersonCount: personCount,
		CloseCount:  closeCount,
	})
}
