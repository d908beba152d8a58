// Package live hosts interactive editing sessions. A browser opens an SSE
// stream, gets a session id, and drives the onboarding wizard and the editing
// surfaces with small commands; every state change is pushed back as an event.
package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/appstate"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/links"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/onboarding"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/theme"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/username"
)

// Event names on the stream.
const (
	EventSession      = "session"
	EventState        = "state"
	EventAvailability = "availability"
	EventSaved        = "saved"
	EventError        = "error"
	EventRedirect     = "redirect"
)

var ErrClosed = errors.New("live session closed")

// Backend is the write path a session persists through.
type Backend interface {
	Ensure(ctx context.Context, sess *models.Session) (*models.Profile, error)
	Get(ctx context.Context, accountID string) (*models.Profile, error)
	AvailabilityFor(accountID string) username.AvailabilityFunc
	SaveIdentity(ctx context.Context, accountID, rawUsername, bio string) (*models.Profile, error)
	SaveLinks(ctx context.Context, accountID string, list []models.BioLink) (*models.Profile, error)
	SaveThemePayload(ctx context.Context, accountID string, payload theme.Payload) (*models.Profile, error)
}

type Options struct {
	UsernameDebounce time.Duration
	LinksAutoSave    time.Duration
	Heartbeat        time.Duration
	// Buffer is the outbound queue size; events beyond it are dropped.
	Buffer int
}

func (o Options) withDefaults() Options {
	if o.UsernameDebounce <= 0 {
		o.UsernameDebounce = username.DefaultDebounce
	}
	if o.LinksAutoSave <= 0 {
		o.LinksAutoSave = links.DefaultAutoSave
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 15 * time.Second
	}
	if o.Buffer <= 0 {
		o.Buffer = 32
	}
	return o
}

// Message is one outbound event.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// StateView is the full picture the client renders from.
type StateView struct {
	Step         onboarding.Step  `json:"step"`
	Phase        onboarding.Phase `json:"phase"`
	Profile      *models.Profile  `json:"profile,omitempty"`
	Username     username.Result  `json:"username"`
	Links        []models.BioLink `json:"bioLinks"`
	LinksPending bool             `json:"linksPending"`
	Theme        *theme.Payload   `json:"theme,omitempty"`
}

// SavedEvent reports a persisted surface.
type SavedEvent struct {
	Surface string           `json:"surface"`
	Silent  bool             `json:"silent,omitempty"`
	Links   []models.BioLink `json:"bioLinks,omitempty"`
	Profile *models.Profile  `json:"profile,omitempty"`
}

// ErrorEvent is the error state of one surface.
type ErrorEvent struct {
	Surface string            `json:"surface"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Silent  bool              `json:"silent,omitempty"`
}

// Session is one open editor. Its components are the ones the wizard needs:
// the state container, the flow controller and the three surfaces.
type Session struct {
	ID        uuid.UUID
	AccountID string

	backend Backend
	opts    Options
	log     *logger.Logger

	store   *appstate.Store
	flow    *onboarding.Controller
	checker *username.Checker
	editor  *links.Editor
	picker  *theme.Picker

	outbound chan Message
	done     chan struct{}

	closeOnce sync.Once
	unsubs    []func()
}

func newSession(ctx context.Context, backend Backend, sess *models.Session, opts Options, log *logger.Logger) (*Session, error) {
	const op = "live.newSession"

	p, err := backend.Ensure(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Session{
		ID:        uuid.New(),
		AccountID: sess.AccountID,
		backend:   backend,
		opts:      opts,
		store:     appstate.New(),
		outbound:  make(chan Message, opts.Buffer),
		done:      make(chan struct{}),
	}
	s.log = log.With("live_session", s.ID.String(), "account_id", s.AccountID)

	s.flow = onboarding.NewController(func() {
		s.send(EventRedirect, map[string]string{"route": onboarding.RouteDashboard})
	})
	s.flow.OnChange(func(onboarding.State) { s.pushState() })

	s.checker = username.NewChecker(backend.AvailabilityFor(s.AccountID), opts.UsernameDebounce, func(r username.Result) {
		s.send(EventAvailability, r)
	})
	s.editor = links.NewEditor(p.BioLinks, s.persistLinks, opts.LinksAutoSave, s.onLinksEvent)
	s.picker = theme.NewPicker(p)

	s.store.SetSession(sess)
	s.unsubs = append(s.unsubs, s.store.Subscribe(func(snap appstate.Snapshot) {
		if snap.Profile != nil {
			s.editor.Reset(snap.Profile.BioLinks)
			s.flow.Observe(snap.Profile)
		}
	}))
	s.unsubs = append(s.unsubs, appstate.Select(s.store,
		func(snap appstate.Snapshot) bool { return snap.Session != nil },
		func(signedIn bool) {
			if !signedIn {
				go s.Close()
			}
		}))

	s.store.SetProfile(p)
	if p.Username != "" {
		s.checker.Input(p.Username)
	}
	return s, nil
}

// Outbound is the event queue the stream drains.
func (s *Session) Outbound() <-chan Message { return s.outbound }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// State builds the current view.
func (s *Session) State() StateView {
	st := s.flow.State()
	v := StateView{
		Step:         st.Step,
		Phase:        st.Phase,
		Profile:      s.store.Profile(),
		Username:     s.checker.Result(),
		Links:        s.editor.Working(),
		LinksPending: s.editor.Pending(),
	}
	if v.Links == nil {
		v.Links = []models.BioLink{}
	}
	if payload, ok := s.picker.Payload(); ok {
		v.Theme = &payload
	}
	return v
}

// Refresh reloads the profile, as on mount or tab focus.
func (s *Session) Refresh(ctx context.Context) (StateView, error) {
	const op = "live.Refresh"
	if s.closed() {
		return StateView{}, ErrClosed
	}
	p, err := s.backend.Get(ctx, s.AccountID)
	if err != nil {
		s.fail("profile", err, false)
		return StateView{}, fmt.Errorf("%s: %w", op, err)
	}
	if s.closed() {
		return StateView{}, ErrClosed
	}
	s.picker.Reset(p)
	s.store.SetProfile(p)
	st := s.State()
	s.send(EventState, st)
	return st, nil
}

// Back moves the wizard one step back.
func (s *Session) Back() (StateView, error) {
	if s.closed() {
		return StateView{}, ErrClosed
	}
	s.flow.Back()
	return s.State(), nil
}

// Username handles one keystroke in the username field.
func (s *Session) Username(raw string) (username.Result, error) {
	if s.closed() {
		return username.Result{}, ErrClosed
	}
	return s.checker.Input(raw), nil
}

// SubmitIdentity saves the checked username with bio. The submit gate is the
// checker's current result; nothing is written unless it allows it.
func (s *Session) SubmitIdentity(ctx context.Context, bio string) (*models.Profile, error) {
	const op = "live.SubmitIdentity"
	if s.closed() {
		return nil, ErrClosed
	}

	r := s.checker.Result()
	if !username.CanSubmitIdentity(r, bio) {
		fields := map[string]string{}
		if !r.CanSubmit() {
			fields["username"] = usernameGateMessage(r)
		}
		if strings.TrimSpace(bio) == "" {
			fields["bio"] = "Bio is required"
		}
		err := &apperr.ValidationError{Fields: fields}
		s.fail("identity", err, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.backend.SaveIdentity(ctx, s.AccountID, r.Candidate, bio)
	if s.closed() {
		return nil, ErrClosed
	}
	if err != nil {
		s.fail("identity", err, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.store.SetProfile(p)
	s.send(EventSaved, SavedEvent{Surface: "identity", Profile: p})
	return p, nil
}

// SetLinks replaces the working list and schedules the auto-save. The
// returned error is inline validation only; the list is kept either way.
func (s *Session) SetLinks(list []models.BioLink) ([]models.BioLink, error) {
	if s.closed() {
		return nil, ErrClosed
	}
	err := s.editor.Set(list)
	return s.editor.Working(), linksValidation(err)
}

// MoveLink splices one entry to a new position and schedules the auto-save.
func (s *Session) MoveLink(from, to int) ([]models.BioLink, error) {
	if s.closed() {
		return nil, ErrClosed
	}
	moved, err := s.editor.Move(from, to)
	if err != nil {
		return nil, apperr.Invalid("bioLinks", "Link position out of range")
	}
	return moved, nil
}

// SaveLinks saves the working list now, superseding a pending auto-save.
func (s *Session) SaveLinks(ctx context.Context) ([]models.BioLink, error) {
	const op = "live.SaveLinks"
	if s.closed() {
		return nil, ErrClosed
	}
	saved, err := s.editor.Save(ctx)
	if err != nil {
		if verr := linksValidation(err); verr != nil {
			return nil, fmt.Errorf("%s: %w", op, verr)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// SelectTheme switches the working theme, keeping the user's overrides.
func (s *Session) SelectTheme(key string) (theme.Payload, error) {
	if s.closed() {
		return theme.Payload{}, ErrClosed
	}
	payload, err := s.picker.Select(key)
	if err != nil {
		return theme.Payload{}, apperr.Invalid("theme", "Choose a theme from the catalog")
	}
	s.pushState()
	return payload, nil
}

// CustomizeTheme layers explicit style overrides on the working theme.
func (s *Session) CustomizeTheme(cfg models.ThemeConfig) (theme.Payload, error) {
	if s.closed() {
		return theme.Payload{}, ErrClosed
	}
	if _, ok := s.picker.Payload(); !ok {
		return theme.Payload{}, apperr.Invalid("theme", "Choose a theme first")
	}
	payload := s.picker.Customize(cfg)
	s.pushState()
	return payload, nil
}

// SaveTheme persists the working theme and config.
func (s *Session) SaveTheme(ctx context.Context) (*models.Profile, error) {
	const op = "live.SaveTheme"
	if s.closed() {
		return nil, ErrClosed
	}
	payload, ok := s.picker.Payload()
	if !ok {
		err := apperr.Invalid("theme", "Choose a theme first")
		s.fail("theme", err, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.backend.SaveThemePayload(ctx, s.AccountID, payload)
	if s.closed() {
		return nil, ErrClosed
	}
	if err != nil {
		s.fail("theme", err, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.picker.Reset(p)
	s.store.SetProfile(p)
	s.send(EventSaved, SavedEvent{Surface: "theme", Profile: p})
	return p, nil
}

// SignOut drops the session state, which ends the session.
func (s *Session) SignOut() {
	s.store.Clear()
}

// Close stops the surfaces and ends the stream. A pending links auto-save is
// dropped and late answers are ignored.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.checker.Close()
		s.editor.Close()
		s.log.Debug("live session closed")
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) persistLinks(ctx context.Context, list []models.BioLink) error {
	p, err := s.backend.SaveLinks(ctx, s.AccountID, list)
	if err != nil {
		return err
	}
	if !s.closed() {
		s.store.SetProfile(p)
	}
	return nil
}

func (s *Session) onLinksEvent(ev links.Event) {
	switch ev.Kind {
	case links.EventSaved:
		s.send(EventSaved, SavedEvent{Surface: "links", Silent: ev.Silent, Links: ev.Links})
	case links.EventInvalid:
		s.send(EventError, ErrorEvent{Surface: "links", Message: "Validation failed", Errors: ev.Entries})
	case links.EventError:
		s.send(EventError, ErrorEvent{Surface: "links", Message: ev.Message, Silent: ev.Silent})
	}
}

func (s *Session) pushState() {
	s.send(EventState, s.State())
}

func (s *Session) fail(surface string, err error, silent bool) {
	ev := ErrorEvent{Surface: surface, Message: apperr.Message(err), Silent: silent}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		ev.Errors = verr.Fields
	}
	if errors.Is(err, apperr.ErrUsernameTaken) {
		ev.Errors = map[string]string{"username": "Username is already taken"}
	}
	s.send(EventError, ev)
}

// send never blocks: a full queue drops the event.
func (s *Session) send(event string, data any) {
	if s.closed() {
		return
	}
	select {
	case s.outbound <- Message{Event: event, Data: data}:
	default:
		s.log.Warn("dropping live event; outbound buffer full", "event", event)
	}
}

func usernameGateMessage(r username.Result) string {
	switch r.Status {
	case username.StatusIdle:
		return "Username is required"
	case username.StatusInvalid, username.StatusTaken, username.StatusError:
		return r.Message
	case username.StatusChecking:
		return "Still checking availability"
	default:
		return "Choose an available username"
	}
}

func linksValidation(err error) error {
	var inv *links.InvalidError
	if errors.As(err, &inv) {
		return &apperr.ValidationError{Fields: inv.Fields()}
	}
	return err
}
