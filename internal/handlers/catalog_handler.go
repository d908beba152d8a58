package handlers

import (
	"net/http"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/links"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/theme"
)

type platformView struct {
	links.Platform
	Pattern string `json:"pattern,omitempty"`
}

// Themes lists the fixed theme catalog with each theme's defaults.
func Themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"themes":  theme.Catalog(),
		"default": theme.DefaultKey,
	}))
}

// Platforms lists the link platforms with their URL patterns.
func Platforms(w http.ResponseWriter, r *http.Request) {
	all := links.Platforms()
	out := make([]platformView, 0, len(all))
	for _, p := range all {
		out = append(out, platformView{Platform: p, Pattern: p.PatternString()})
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(out))
}
