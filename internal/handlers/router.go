package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/live"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/metrics"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/middleware"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/render"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/services"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/session"
)

type RouterDeps struct {
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Sessions *session.Adapter
	Profiles *services.ProfileService
	Renderer *render.Renderer
	Live     *live.Registry

	AllowedOrigins []string
	PublicBaseURL  string
	RequestTimeout time.Duration
}

// NewRouter wires every route.
func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	sessionHandler := NewSessionHandler(d.Sessions, d.Profiles, d.RequestTimeout)
	profileHandler := NewProfileHandler(d.Profiles, d.RequestTimeout)
	publicHandler := NewPublicHandler(d.Renderer, d.PublicBaseURL, d.RequestTimeout)
	liveHandler := NewLiveHandler(d.Live, d.RequestTimeout)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"status": "ok"}))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/u/{username}", publicHandler.Page)

	r.Route("/api", func(r chi.Router) {
		r.Get("/public/{username}", publicHandler.JSON)
		r.Get("/themes", Themes)
		r.Get("/platforms", Platforms)

		r.Post("/session", sessionHandler.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Sessions))
			r.Use(middleware.RequireSession)

			r.Delete("/session", sessionHandler.SignOut)

			r.Get("/usernames/{candidate}/availability", profileHandler.CheckUsername)

			r.Route("/me", func(r chi.Router) {
				r.Get("/profile", profileHandler.GetProfile)
				r.Get("/onboarding", profileHandler.GetOnboarding)
				r.Put("/identity", profileHandler.SaveIdentity)
				r.Put("/username", profileHandler.SaveUsername)
				r.Put("/bio", profileHandler.SaveBio)
				r.Put("/links", profileHandler.SaveLinks)
				r.Put("/theme", profileHandler.SaveTheme)

				r.With(middleware.RequireOnboarded(d.Profiles)).Get("/dashboard", profileHandler.Dashboard)
			})

			r.Route("/live", func(r chi.Router) {
				r.Get("/", liveHandler.Stream)
				r.Route("/{id}", func(r chi.Router) {
					r.Post("/refresh", liveHandler.Refresh)
					r.Post("/back", liveHandler.Back)
					r.Post("/username", liveHandler.Username)
					r.Post("/identity", liveHandler.Identity)
					r.Put("/links", liveHandler.SetLinks)
					r.Post("/links/move", liveHandler.MoveLink)
					r.Post("/links/save", liveHandler.SaveLinks)
					r.Post("/theme", liveHandler.SelectTheme)
					r.Patch("/theme", liveHandler.CustomizeTheme)
					r.Post("/theme/save", liveHandler.SaveTheme)
				})
			})
		})
	})

	return r
}
