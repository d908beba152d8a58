package links

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// DefaultAutoSave is the idle delay after a change before the silent save.
const DefaultAutoSave = 3 * time.Second

// SaveFunc persists a validated list.
type SaveFunc func(ctx context.Context, links []models.BioLink) error

type EventKind string

const (
	EventSaved   EventKind = "saved"
	EventInvalid EventKind = "invalid"
	EventError   EventKind = "error"
)

// Event reports the outcome of a save attempt. Silent is set for auto-saves,
// which callers should not announce to the user.
type Event struct {
	Kind    EventKind         `json:"kind"`
	Silent  bool              `json:"silent"`
	Links   []models.BioLink  `json:"bioLinks,omitempty"`
	Entries map[string]string `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Editor holds the working link list for one editing session. Changes are
// auto-saved after an idle delay when the list is valid; Save runs at once and
// supersedes a pending auto-save. All writes go through one mutex and the same
// Validate gate, and a list identical to the last saved one is not written
// again.
type Editor struct {
	save    SaveFunc
	delay   time.Duration
	onEvent func(Event)

	mu        sync.Mutex
	working   []models.BioLink
	lastSaved []models.BioLink
	timer     *time.Timer
	closed    bool

	saveMu sync.Mutex
	wg     sync.WaitGroup
}

// NewEditor seeds the working list from the committed profile links.
func NewEditor(committed []models.BioLink, save SaveFunc, delay time.Duration, onEvent func(Event)) *Editor {
	if delay <= 0 {
		delay = DefaultAutoSave
	}
	return &Editor{
		save:      save,
		delay:     delay,
		onEvent:   onEvent,
		working:   models.CloneLinks(committed),
		lastSaved: models.CloneLinks(committed),
	}
}

// Working returns a copy of the working list.
func (e *Editor) Working() []models.BioLink {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneLinks(e.working)
}

// Pending reports whether an auto-save is scheduled.
func (e *Editor) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer != nil
}

// Reset adopts a freshly loaded committed list. The working list follows it
// unless the user has unsaved edits waiting for auto-save.
func (e *Editor) Reset(committed []models.BioLink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSaved = models.CloneLinks(committed)
	if e.timer == nil {
		e.working = models.CloneLinks(committed)
	}
}

// Set replaces the working list and schedules an auto-save. The returned error
// is the inline validation state of the new list.
func (e *Editor) Set(list []models.BioLink) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.working = models.CloneLinks(list)
	e.scheduleLocked()
	e.mu.Unlock()

	_, err := Validate(list)
	return err
}

// Move reorders the working list and schedules an auto-save.
func (e *Editor) Move(from, to int) ([]models.BioLink, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return models.CloneLinks(e.working), nil
	}
	moved, err := Move(e.working, from, to)
	if err != nil {
		return nil, err
	}
	e.working = moved
	e.scheduleLocked()
	return models.CloneLinks(moved), nil
}

// Save validates and persists now, cancelling any pending auto-save.
func (e *Editor) Save(ctx context.Context) ([]models.BioLink, error) {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
	return e.saveNow(ctx, false)
}

// Flush runs a pending auto-save immediately. It is a no-op otherwise.
func (e *Editor) Flush(ctx context.Context) {
	e.mu.Lock()
	pending := e.timer != nil
	e.stopLocked()
	e.mu.Unlock()
	if pending {
		_, _ = e.saveNow(ctx, true)
	}
}

// Close drops any pending auto-save and waits for a running one.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.stopLocked()
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Editor) scheduleLocked() {
	e.stopLocked()
	e.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(e.delay, func() {
		defer e.wg.Done()
		e.mu.Lock()
		if e.timer != t {
			e.mu.Unlock()
			return
		}
		e.timer = nil
		e.mu.Unlock()
		_, _ = e.saveNow(context.Background(), true)
	})
	e.timer = t
}

func (e *Editor) stopLocked() {
	if e.timer != nil && e.timer.Stop() {
		e.wg.Done()
	}
	e.timer = nil
}

func (e *Editor) saveNow(ctx context.Context, silent bool) ([]models.BioLink, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	working := models.CloneLinks(e.working)
	last := models.CloneLinks(e.lastSaved)
	e.mu.Unlock()

	clean, err := Validate(working)
	if err != nil {
		var inv *InvalidError
		if !silent && errors.As(err, &inv) {
			e.emit(Event{Kind: EventInvalid, Entries: inv.Fields()})
		}
		return nil, err
	}

	if Equal(clean, last) {
		if !silent {
			e.emit(Event{Kind: EventSaved, Links: clean})
		}
		return clean, nil
	}

	if err := e.save(ctx, clean); err != nil {
		e.emit(Event{Kind: EventError, Silent: silent, Message: "Could not save links, try again"})
		return nil, err
	}

	e.mu.Lock()
	e.lastSaved = models.CloneLinks(clean)
	e.mu.Unlock()

	e.emit(Event{Kind: EventSaved, Silent: silent, Links: clean})
	return clean, nil
}

func (e *Editor) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}
