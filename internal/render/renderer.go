// Package render is the public, unauthenticated read path: it looks a
// profile up by username and turns it into the page visitors see.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/apperr"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/cache"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/links"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/metrics"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/theme"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/username"
)

const (
	defaultViewTimeout   = 2 * time.Second
	defaultLookupTimeout = 5 * time.Second
)

// ProfileLookup is the slice of the repository the renderer reads.
type ProfileLookup interface {
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
}

// LinkView is one rendered link.
type LinkView struct {
	Platform string `json:"id"`
	Label    string `json:"label"`
	URL      string `json:"url"`
}

// View is the public projection of a profile. Private fields such as email
// never reach it.
type View struct {
	Username    string             `json:"username"`
	DisplayName string             `json:"displayName"`
	PhotoURL    string             `json:"photoURL,omitempty"`
	Bio         string             `json:"bio"`
	Links       []LinkView         `json:"bioLinks"`
	Theme       string             `json:"theme"`
	Component   string             `json:"component"`
	Style       models.ThemeConfig `json:"style"`
}

type Options struct {
	Cache   cache.ProfileCache
	Counter ViewCounter
	Metrics *metrics.Metrics
	// ViewTimeout bounds each background view-count call.
	ViewTimeout time.Duration
	// LookupTimeout bounds a repository read shared by concurrent lookups.
	LookupTimeout time.Duration
}

type Renderer struct {
	repo        ProfileLookup
	cache       cache.ProfileCache
	counter     ViewCounter
	metrics     *metrics.Metrics
	viewTimeout time.Duration
	// lookupTimeout bounds the shared repository read.
	lookupTimeout time.Duration

	group    singleflight.Group
	inflight sync.WaitGroup
}

func NewRenderer(repo ProfileLookup, opts Options) *Renderer {
	r := &Renderer{
		repo:        repo,
		cache:       opts.Cache,
		counter:     opts.Counter,
		metrics:     opts.Metrics,
		viewTimeout: opts.ViewTimeout,

		lookupTimeout: opts.LookupTimeout,
	}
	if r.cache == nil {
		r.cache = cache.Noop{}
	}
	if r.viewTimeout <= 0 {
		r.viewTimeout = defaultViewTimeout
	}
	if r.lookupTimeout <= 0 {
		r.lookupTimeout = defaultLookupTimeout
	}
	return r
}

// Lookup finds the profile published under name. Concurrent lookups of the
// same name share one repository read.
func (r *Renderer) Lookup(ctx context.Context, name string) (*models.Profile, error) {
	const op = "render.Lookup"
	lg := logger.From(ctx).With("op", op, "username", name)

	// Stored names are normalised, so anything that is not a valid
	// normalised name cannot match.
	key := strings.ToLower(strings.TrimSpace(name))
	if username.Normalize(key) != key || username.Validate(key) != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	if p, ok, err := r.cache.Get(ctx, key); err != nil {
		lg.Warn("profile cache read failed", "error", err)
	} else if ok {
		return p, nil
	}

	// The shared read is detached from the first caller so its cancellation
	// does not fail everyone waiting on the same name.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(shared, r.lookupTimeout)
		defer cancel()
		p, err := r.repo.GetProfileByUsername(rctx, key)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(rctx, p); err != nil {
			lg.Warn("profile cache write failed", "error", err)
		}
		return p, nil
	})

	var (
		v   interface{}
		err error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			lg.Error("profile lookup failed", "error", err)
			return nil, fmt.Errorf("%s: %w: %v", op, apperr.ErrStoreUnavailable, err)
		}
	}
	return v.(*models.Profile).Clone(), nil
}

// Render looks the profile up, builds its view and fires the view count.
// The count runs in the background; its outcome never affects the page.
func (r *Renderer) Render(ctx context.Context, name string) (*View, error) {
	p, err := r.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	r.countView(ctx, p)
	return Build(p), nil
}

// Wait blocks until background view counts have finished.
func (r *Renderer) Wait() {
	r.inflight.Wait()
}

func (r *Renderer) countView(ctx context.Context, p *models.Profile) {
	r.metrics.ProfileViewed()
	if r.counter == nil {
		return
	}
	lg := logger.From(ctx).With("op", "render.countView", "account_id", p.AccountID)
	bg := context.WithoutCancel(ctx)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		cctx, cancel := context.WithTimeout(bg, r.viewTimeout)
		defer cancel()
		if err := r.counter.CountView(cctx, p); err != nil {
			lg.Warn("failed to count profile view", "error", err)
		}
	}()
}

// Build projects a profile onto its public view, resolving the theme with
// fallback to the default.
func Build(p *models.Profile) *View {
	t := theme.Resolve(p.Theme)
	v := &View{
		Username:    p.Username,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Bio:         p.Bio,
		Links:       make([]LinkView, 0, len(p.BioLinks)),
		Theme:       t.Key,
		Component:   t.Component,
		Style:       theme.Effective(t, p.ThemeConfig),
	}
	if v.DisplayName == "" {
		v.DisplayName = "@" + p.Username
	}
	for _, l := range p.BioLinks {
		label := l.ID
		if pl, ok := links.LookupPlatform(l.ID); ok {
			label = pl.Label
		}
		v.Links = append(v.Links, LinkView{Platform: l.ID, Label: label, URL: l.URL})
	}
	return v
}
