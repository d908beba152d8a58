package onboarding

import (
	"sync"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// Step is the wizard screen currently displayed.
type Step int

const (
	StepIdentity Step = iota
	StepLinks
	StepTheme
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepLinks:
		return "links"
	case StepTheme:
		return "theme"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText lets steps travel as strings in JSON payloads.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StepFor maps a phase to the step that fixes it. PhaseUnknown has no step.
func StepFor(phase Phase) (Step, bool) {
	switch phase {
	case PhaseNeedsIdentity:
		return StepIdentity, true
	case PhaseNeedsLinks:
		return StepLinks, true
	case PhaseNeedsTheme:
		return StepTheme, true
	case PhaseComplete:
		return StepDone, true
	default:
		return StepIdentity, false
	}
}

// State is a snapshot of the controller.
type State struct {
	Step  Step  `json:"step"`
	Phase Phase `json:"phase"`
}

// Controller is the onboarding state machine. Steps move only when the
// evaluator says so (Observe) or when the user asks to go back (Back). It never
// writes to the profile: surfaces persist their own slice and then hand the
// refreshed profile to Observe. A failed save simply never reaches it.
type Controller struct {
	mu         sync.Mutex
	step       Step
	phase      Phase
	redirected bool

	listeners  []func(State)
	onRedirect func()
}

// NewController starts at the identity step in PhaseUnknown. onRedirect runs
// exactly once, when the flow first reaches StepDone.
func NewController(onRedirect func()) *Controller {
	return &Controller{
		step:       StepIdentity,
		phase:      PhaseUnknown,
		onRedirect: onRedirect,
	}
}

// OnChange registers a listener called after every step change.
func (c *Controller) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Step: c.step, Phase: c.phase}
}

// Observe re-runs the evaluator on p and jumps straight to the implied step if
// it differs from the displayed one. No linear replay of skipped steps.
func (c *Controller) Observe(p *models.Profile) State {
	phase := Evaluate(p)

	c.mu.Lock()
	c.phase = phase
	target, ok := StepFor(phase)
	if !ok || c.step == StepDone || target == c.step {
		st := State{Step: c.step, Phase: c.phase}
		c.mu.Unlock()
		return st
	}

	c.step = target
	fireRedirect := false
	if target == StepDone && !c.redirected {
		c.redirected = true
		fireRedirect = true
	}
	st := State{Step: c.step, Phase: c.phase}
	listeners := append([]func(State){}, c.listeners...)
	onRedirect := c.onRedirect
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
	if fireRedirect && onRedirect != nil {
		onRedirect()
	}
	return st
}

// Back shows the previous step. Done is terminal and the identity step has
// nothing before it; both are no-ops.
func (c *Controller) Back() State {
	c.mu.Lock()
	if c.step == StepDone || c.step == StepIdentity {
		st := State{Step: c.step, Phase: c.phase}
		c.mu.Unlock()
		return st
	}
	c.step--
	st := State{Step: c.step, Phase: c.phase}
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
	return st
}

// Done reports whether the flow has finished.
func (c *Controller) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step == StepDone
}
