package username

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the idle time after the last keystroke before a check runs.
const DefaultDebounce = 500 * time.Millisecond

type Status string

const (
	StatusIdle      Status = "idle"
	StatusInvalid   Status = "invalid"
	StatusChecking  Status = "checking"
	StatusAvailable Status = "available"
	StatusTaken     Status = "taken"
	StatusError     Status = "error"
)

// Result is what the username field shows for the current candidate.
type Result struct {
	Candidate string `json:"candidate"`
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
}

// CanSubmit is the gate for saving the username on its own.
func (r Result) CanSubmit() bool {
	return r.Status == StatusAvailable && Validate(r.Candidate) == nil
}

// CanSubmitIdentity is the gate for the combined username+bio step.
func CanSubmitIdentity(r Result, bio string) bool {
	return r.CanSubmit() && strings.TrimSpace(bio) != ""
}

// AvailabilityFunc reports whether candidate can be claimed by the caller.
type AvailabilityFunc func(ctx context.Context, candidate string) (bool, error)

// Checker debounces keystrokes and applies availability answers in request
// order. Every keystroke bumps a sequence number; an answer is applied only if
// its sequence is still current, so a slow early check can never overwrite a
// fast later one. Superseded in-flight checks also get their context cancelled.
type Checker struct {
	check    AvailabilityFunc
	delay    time.Duration
	onChange func(Result)

	// emitMu orders listener calls; a result is emitted only while its
	// sequence is still current.
	emitMu sync.Mutex

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	result Result
	closed bool

	wg sync.WaitGroup
}

// NewChecker returns an idle checker. onChange may be nil.
func NewChecker(check AvailabilityFunc, delay time.Duration, onChange func(Result)) *Checker {
	if delay < 0 {
		delay = DefaultDebounce
	}
	return &Checker{
		check:    check,
		delay:    delay,
		onChange: onChange,
		result:   Result{Status: StatusIdle},
	}
}

// Input handles one keystroke. The raw text is normalised first; the returned
// result carries the value the field should display.
func (c *Checker) Input(raw string) Result {
	candidate := Normalize(raw)

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		r := c.result
		c.mu.Unlock()
		return r
	}
	c.seq++
	seq := c.seq
	c.stopLocked()

	var r Result
	switch err := Validate(candidate); {
	case candidate == "":
		r = Result{Status: StatusIdle}
	case err != nil:
		r = Result{Candidate: candidate, Status: StatusInvalid, Message: err.Error()}
	default:
		r = Result{Candidate: candidate, Status: StatusChecking}
		c.wg.Add(1)
		c.timer = time.AfterFunc(c.delay, func() {
			defer c.wg.Done()
			c.run(seq, candidate)
		})
	}
	c.result = r
	c.mu.Unlock()

	c.emit(r)
	return r
}

// Result returns the current state.
func (c *Checker) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Wait blocks until every scheduled or in-flight check has returned.
func (c *Checker) Wait() {
	c.wg.Wait()
}

// Close stops the pending timer, cancels the in-flight check and waits for it.
// Answers arriving afterwards are dropped.
func (c *Checker) Close() {
	c.mu.Lock()
	c.closed = true
	c.seq++
	c.stopLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Checker) stopLocked() {
	if c.timer != nil && c.timer.Stop() {
		// the callback will never run, so release its slot here
		c.wg.Done()
	}
	c.timer = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Checker) run(seq uint64, candidate string) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.timer = nil
	c.mu.Unlock()
	defer cancel()

	available, err := c.check(ctx, candidate)

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	r := Result{Candidate: candidate, Status: StatusAvailable}
	switch {
	case err != nil:
		r.Status = StatusError
		r.Message = "Could not check availability, try again"
	case !available:
		r.Status = StatusTaken
		r.Message = "Username is already taken"
	}
	c.result = r
	c.mu.Unlock()

	c.emit(r)
}

func (c *Checker) emit(r Result) {
	if c.onChange != nil {
		c.onChange(r)
	}
}
