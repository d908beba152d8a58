package models

import (
	"time"
)

// Profile is the single document backing one account's public bio-link page.
// It is keyed by the identity provider's account id and mutated piecemeal by
// the editing surfaces through ProfileFields.
type Profile struct {
	AccountID   string `json:"accountId" bson:"account_id"`
	Username    string `json:"username,omitempty" bson:"username,omitempty"`
	DisplayName string `json:"displayName" bson:"display_name,omitempty"`
	PhotoURL    string `json:"photoURL" bson:"photo_url,omitempty"`
	Email       string `json:"email" bson:"email,omitempty"`

	Bio         string      `json:"bio" bson:"bio,omitempty"`
	BioLinks    []BioLink   `json:"bioLinks" bson:"bio_links,omitempty"`
	Theme       string      `json:"theme,omitempty" bson:"theme,omitempty"`
	ThemeConfig ThemeConfig `json:"themeConfig" bson:"theme_config"`
	// ThemeOverrides are the fields the user customised explicitly. They are
	// re-applied on every theme switch, even where they match a default.
	ThemeOverrides ThemeConfig `json:"themeOverrides" bson:"theme_overrides"`

	// ProfileComplete is a cache of the evaluator's verdict, refreshed on
	// every write. Nothing reads it to make routing decisions.
	ProfileComplete bool  `json:"profileComplete" bson:"profile_complete"`
	Views           int64 `json:"views" bson:"views"`

	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
	LastLoginAt time.Time `json:"lastLoginAt" bson:"last_login_at"`
}

// BioLink is one outbound link. ID is a platform key, not a record id; the
// slice order is the public display order.
type BioLink struct {
	ID  string `json:"id" bson:"id"`
	URL string `json:"url" bson:"url"`
}

// ThemeConfig holds style overrides layered on top of a theme's defaults.
// Empty fields fall back to the theme.
type ThemeConfig struct {
	BackgroundColor string `json:"backgroundColor,omitempty" bson:"background_color,omitempty"`
	TextColor       string `json:"textColor,omitempty" bson:"text_color,omitempty"`
	ButtonColor     string `json:"buttonColor,omitempty" bson:"button_color,omitempty"`
	ButtonTextColor string `json:"buttonTextColor,omitempty" bson:"button_text_color,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty" bson:"font_family,omitempty"`
	CardStyle       string `json:"cardStyle,omitempty" bson:"card_style,omitempty"`
	Spacing         string `json:"spacing,omitempty" bson:"spacing,omitempty"`
}

// Clone returns a deep copy so callers can hand profiles across goroutines
// without sharing the links slice.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.BioLinks = CloneLinks(p.BioLinks)
	return &out
}

// CloneLinks copies a link list, preserving nil.
func CloneLinks(in []BioLink) []BioLink {
	if in == nil {
		return nil
	}
	out := make([]BioLink, len(in))
	copy(out, in)
	return out
}

// ProfileFields is a partial update. Only non-nil fields are written; the
// rest of the stored document is left untouched.
type ProfileFields struct {
	Username    *string
	DisplayName *string
	PhotoURL    *string
	Email       *string
	Bio         *string
	BioLinks    *[]BioLink
	Theme       *string
	ThemeConfig *ThemeConfig
	// ThemeOverrides replaces the stored overrides.
	ThemeOverrides *ThemeConfig
	LastLoginAt *time.Time
}

// IsEmpty reports whether the update carries no fields.
func (f ProfileFields) IsEmpty() bool {
	return len(f.Names()) == 0
}

// Names lists the JSON names of the fields present in the update, in schema order.
func (f ProfileFields) Names() []string {
	names := make([]string, 0, 10)
	if f.Username != nil {
		names = append(names, "username")
	}
	if f.DisplayName != nil {
		names = append(names, "displayName")
	}
	if f.PhotoURL != nil {
		names = append(names, "photoURL")
	}
	if f.Email != nil {
		names = append(names, "email")
	}
	if f.Bio != nil {
		names = append(names, "bio")
	}
	if f.BioLinks != nil {
		names = append(names, "bioLinks")
	}
	if f.Theme != nil {
		names = append(names, "theme")
	}
	if f.ThemeConfig != nil {
		names = append(names, "themeConfig")
	}
	if f.ThemeOverrides != nil {
		names = append(names, "themeOverrides")
	}
	if f.LastLoginAt != nil {
		names = append(names, "lastLoginAt")
	}
	return names
}

// Apply merges the update into p.
func (f ProfileFields) Apply(p *Profile) {
	if f.Username != nil {
		p.Username = *f.Username
	}
	if f.DisplayName != nil {
		p.DisplayName = *f.DisplayName
	}
	if f.PhotoURL != nil {
		p.PhotoURL = *f.PhotoURL
	}
	if f.Email != nil {
		p.Email = *f.Email
	}
	if f.Bio != nil {
		p.Bio = *f.Bio
	}
	if f.BioLinks != nil {
		p.BioLinks = CloneLinks(*f.BioLinks)
	}
	if f.Theme != nil {
		p.Theme = *f.Theme
	}
	if f.ThemeConfig != nil {
		p.ThemeConfig = *f.ThemeConfig
	}
	if f.ThemeOverrides != nil {
		p.ThemeOverrides = *f.ThemeOverrides
	}
	if f.LastLoginAt != nil {
		p.LastLoginAt = *f.LastLoginAt
	}
}

// StringPtr is a small helper for building ProfileFields literals.
func StringPtr(s string) *string { return &s }

// LinksPtr is the []BioLink counterpart of StringPtr.
func LinksPtr(l []BioLink) *[]BioLink { return &l }
