package theme

import (
	"sync"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// Overrides returns the fields of cfg that differ from the defaults of the
// theme they were saved under. Empty fields are never overrides.
func Overrides(savedUnder string, cfg models.ThemeConfig) models.ThemeConfig {
	d := Resolve(savedUnder).Defaults
	pick := func(v, def string) string {
		if v == def {
			return ""
		}
		return v
	}
	return models.ThemeConfig{
		BackgroundColor: pick(cfg.BackgroundColor, d.BackgroundColor),
		TextColor:       pick(cfg.TextColor, d.TextColor),
		ButtonColor:     pick(cfg.ButtonColor, d.ButtonColor),
		ButtonTextColor: pick(cfg.ButtonTextColor, d.ButtonTextColor),
		FontFamily:      pick(cfg.FontFamily, d.FontFamily),
		CardStyle:       pick(cfg.CardStyle, d.CardStyle),
		Spacing:         pick(cfg.Spacing, d.Spacing),
	}
}

// Reconcile works out the explicit overrides after cfg is saved under key.
// A field that differs from key's default is an override. A field equal to
// the default keeps a stored override only when that override has the same
// value, so a customisation that happens to match the new theme survives
// while a deliberate reset to the default drops it. Empty fields leave the
// stored override alone.
func Reconcile(key string, stored, cfg models.ThemeConfig) models.ThemeConfig {
	d := Resolve(key).Defaults
	field := func(v, def, kept string) string {
		switch {
		case v == "":
			return kept
		case v != def:
			return v
		case kept == v:
			return kept
		}
		return ""
	}
	return models.ThemeConfig{
		BackgroundColor: field(cfg.BackgroundColor, d.BackgroundColor, stored.BackgroundColor),
		TextColor:       field(cfg.TextColor, d.TextColor, stored.TextColor),
		ButtonColor:     field(cfg.ButtonColor, d.ButtonColor, stored.ButtonColor),
		ButtonTextColor: field(cfg.ButtonTextColor, d.ButtonTextColor, stored.ButtonTextColor),
		FontFamily:      field(cfg.FontFamily, d.FontFamily, stored.FontFamily),
		CardStyle:       field(cfg.CardStyle, d.CardStyle, stored.CardStyle),
		Spacing:         field(cfg.Spacing, d.Spacing, stored.Spacing),
	}
}

// Merge seeds the config from t's defaults and re-applies overrides on top.
func Merge(t Theme, overrides models.ThemeConfig) models.ThemeConfig {
	return overlay(t.Defaults, overrides)
}

func overlay(base, top models.ThemeConfig) models.ThemeConfig {
	take := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return models.ThemeConfig{
		BackgroundColor: take(top.BackgroundColor, base.BackgroundColor),
		TextColor:       take(top.TextColor, base.TextColor),
		ButtonColor:     take(top.ButtonColor, base.ButtonColor),
		ButtonTextColor: take(top.ButtonTextColor, base.ButtonTextColor),
		FontFamily:      take(top.FontFamily, base.FontFamily),
		CardStyle:       take(top.CardStyle, base.CardStyle),
		Spacing:         take(top.Spacing, base.Spacing),
	}
}

// Payload is what the theme surface saves.
type Payload struct {
	Theme       string             `json:"theme"`
	ThemeConfig models.ThemeConfig `json:"themeConfig"`
	Overrides   models.ThemeConfig `json:"themeOverrides"`
}

// Picker is the working state of the theme surface. Overrides captured from
// the profile survive any number of theme switches, including switching back.
type Picker struct {
	mu        sync.Mutex
	selected  string
	config    models.ThemeConfig
	overrides models.ThemeConfig
}

// NewPicker starts from the profile's stored theme and config.
func NewPicker(p *models.Profile) *Picker {
	pk := &Picker{}
	pk.Reset(p)
	return pk
}

// Reset re-reads the stored theme and config.
func (pk *Picker) Reset(p *models.Profile) {
	pk.mu.Lock()
	defer pk.mu.Unlock()
	if p == nil {
		pk.selected = ""
		pk.config = models.ThemeConfig{}
		pk.overrides = models.ThemeConfig{}
		return
	}
	pk.selected = p.Theme
	// documents saved before overrides were stored reduce to Overrides
	pk.overrides = Reconcile(p.Theme, p.ThemeOverrides, p.ThemeConfig)
	pk.config = Merge(Resolve(p.Theme), pk.overrides)
}

// Select switches to key, seeding its defaults and keeping the overrides.
func (pk *Picker) Select(key string) (Payload, error) {
	t, ok := Lookup(key)
	if !ok {
		return Payload{}, ErrUnknownTheme
	}
	pk.mu.Lock()
	defer pk.mu.Unlock()
	pk.selected = t.Key
	pk.config = Merge(t, pk.overrides)
	return Payload{Theme: pk.selected, ThemeConfig: pk.config, Overrides: pk.overrides}, nil
}

// Customize records explicit per-field overrides for the selected theme.
func (pk *Picker) Customize(cfg models.ThemeConfig) Payload {
	pk.mu.Lock()
	defer pk.mu.Unlock()
	pk.overrides = overlay(pk.overrides, cfg)
	pk.config = Merge(Resolve(pk.selected), pk.overrides)
	return Payload{Theme: pk.selected, ThemeConfig: pk.config, Overrides: pk.overrides}
}

// Payload returns the current save payload. ok is false until a theme is chosen.
func (pk *Picker) Payload() (Payload, bool) {
	pk.mu.Lock()
	defer pk.mu.Unlock()
	if _, known := Lookup(pk.selected); !known {
		return Payload{}, false
	}
	return Payload{Theme: pk.selected, ThemeConfig: pk.config, Overrides: pk.overrides}, true
}
