// Package theme holds the fixed theme catalog and the picker that merges a
// theme's defaults with a profile's own style overrides.
package theme

import (
	"errors"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// Presentation components a theme can render through.
const (
	ComponentList  = "list"
	ComponentCards = "cards"
)

// DefaultKey is used whenever a profile's theme is missing or unknown.
const DefaultKey = "minimal"

var ErrUnknownTheme = errors.New("theme: unknown key")

type Theme struct {
	Key       string             `json:"key"`
	Name      string             `json:"name"`
	Component string             `json:"component"`
	Defaults  models.ThemeConfig `json:"defaults"`
}

var catalog = []Theme{
	{
		Key: "minimal", Name: "Minimal", Component: ComponentList,
		Defaults: models.ThemeConfig{
			BackgroundColor: "#ffffff", TextColor: "#111111",
			ButtonColor: "#111111", ButtonTextColor: "#ffffff",
			FontFamily: "Inter, sans-serif", CardStyle: "rounded", Spacing: "normal",
		},
	},
	{
		Key: "midnight", Name: "Midnight", Component: ComponentList,
		Defaults: models.ThemeConfig{
			BackgroundColor: "#0b1020", TextColor: "#e6e9f2",
			ButtonColor: "#1f2a48", ButtonTextColor: "#e6e9f2",
			FontFamily: "Inter, sans-serif", CardStyle: "pill", Spacing: "relaxed",
		},
	},
	{
		Key: "ocean", Name: "Ocean", Component: ComponentCards,
		Defaults: models.ThemeConfig{
			BackgroundColor: "#e0f4ff", TextColor: "#08324a",
			ButtonColor: "#0077b6", ButtonTextColor: "#ffffff",
			FontFamily: "Nunito, sans-serif", CardStyle: "shadow", Spacing: "normal",
		},
	},
	{
		Key: "sunset", Name: "Sunset", Component: ComponentCards,
		Defaults: models.ThemeConfig{
			BackgroundColor: "#ffecd2", TextColor: "#4a1c1c",
			ButtonColor: "#ff7e5f", ButtonTextColor: "#ffffff",
			FontFamily: "Poppins, sans-serif", CardStyle: "rounded", Spacing: "relaxed",
		},
	},
	{
		Key: "paper", Name: "Paper", Component: ComponentList,
		Defaults: models.ThemeConfig{
			BackgroundColor: "#f7f3e9", TextColor: "#2b2b2b",
			ButtonColor: "#f7f3e9", ButtonTextColor: "#2b2b2b",
			FontFamily: "Georgia, serif", CardStyle: "outline", Spacing: "compact",
		},
	},
}

// Catalog returns every theme in display order.
func Catalog() []Theme {
	out := make([]Theme, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a theme by key.
func Lookup(key string) (Theme, bool) {
	for _, t := range catalog {
		if t.Key == key {
			return t, true
		}
	}
	return Theme{}, false
}

// Default is the fallback theme.
func Default() Theme {
	t, _ := Lookup(DefaultKey)
	return t
}

// Resolve never fails: unknown or empty keys give the default theme.
func Resolve(key string) Theme {
	if t, ok := Lookup(key); ok {
		return t
	}
	return Default()
}

// Effective is the style the public page renders with: the stored config
// with any empty field filled from the theme's defaults.
func Effective(t Theme, cfg models.ThemeConfig) models.ThemeConfig {
	return overlay(t.Defaults, cfg)
}
