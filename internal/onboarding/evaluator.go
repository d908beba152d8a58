// Package onboarding decides where a profile stands in the setup flow and
// drives the step-by-step wizard from that decision.
package onboarding

import (
	"strings"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// Phase is the completeness classification of a profile.
type Phase string

const (
	PhaseUnknown       Phase = "UNKNOWN"
	PhaseNeedsIdentity Phase = "NEEDS_IDENTITY"
	PhaseNeedsLinks    Phase = "NEEDS_LINKS"
	PhaseNeedsTheme    Phase = "NEEDS_THEME"
	PhaseComplete      Phase = "COMPLETE"
)

// Routes handed to the app shell by NextRoute.
const (
	RoutePublic    = "/"
	RouteIdentity  = "/onboarding/identity"
	RouteLinks     = "/onboarding/links"
	RouteTheme     = "/onboarding/theme"
	RouteDashboard = "/dashboard"
)

// Evaluate classifies a profile. It only looks at username, bio, bioLinks and
// theme, and it re-derives the answer from scratch every time: identity comes
// before links, links before theme, no matter which order the fields were
// actually filled in.
func Evaluate(p *models.Profile) Phase {
	if p == nil {
		return PhaseUnknown
	}
	if strings.TrimSpace(p.Username) == "" || strings.TrimSpace(p.Bio) == "" {
		return PhaseNeedsIdentity
	}
	if !hasLink(p.BioLinks) {
		return PhaseNeedsLinks
	}
	if strings.TrimSpace(p.Theme) == "" {
		return PhaseNeedsTheme
	}
	return PhaseComplete
}

// IsComplete reports whether all four core fields are present.
func IsComplete(p *models.Profile) bool {
	return Evaluate(p) == PhaseComplete
}

// NextRoute is where the route guard sends a signed-in user with this profile.
func NextRoute(p *models.Profile) string {
	return RouteFor(Evaluate(p))
}

// RouteFor maps a phase to its route.
func RouteFor(phase Phase) string {
	switch phase {
	case PhaseNeedsIdentity:
		return RouteIdentity
	case PhaseNeedsLinks:
		return RouteLinks
	case PhaseNeedsTheme:
		return RouteTheme
	case PhaseComplete:
		return RouteDashboard
	default:
		return RoutePublic
	}
}

// IsAuthenticatedAreaAllowed is the guard predicate for the signed-in part of
// the app.
func IsAuthenticatedAreaAllowed(s *models.Session) bool {
	return s != nil && strings.TrimSpace(s.AccountID) != ""
}

func hasLink(links []models.BioLink) bool {
	for _, l := range links {
		if strings.TrimSpace(l.URL) != "" {
			return true
		}
	}
	return false
}
