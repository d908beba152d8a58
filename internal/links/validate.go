package links

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// MaxLinks bounds the list a single profile can carry.
const MaxLinks = 50

var (
	ErrInvalid    = errors.New("links: invalid entries")
	ErrOutOfRange = errors.New("links: index out of range")
)

// InvalidError carries the per-entry messages, keyed by position in the
// working list.
type InvalidError struct {
	Entries map[int]string
}

func (e *InvalidError) Error() string {
	idx := make([]int, 0, len(e.Entries))
	for i := range e.Entries {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("%d: %s", i, e.Entries[i]))
	}
	return "links: " + strings.Join(parts, "; ")
}

func (e *InvalidError) Unwrap() error { return ErrInvalid }

// Fields renders the entries as "bioLinks.N" keyed messages.
func (e *InvalidError) Fields() map[string]string {
	out := make(map[string]string, len(e.Entries))
	for i, msg := range e.Entries {
		out[fmt.Sprintf("bioLinks.%d", i)] = msg
	}
	return out
}

// Validate is the single gate every save path goes through. Entries with an
// empty URL are dropped silently; everything else must match its platform's
// pattern, or be an absolute http(s) URL when the platform has none. The
// returned list is what gets persisted. err is an *InvalidError or nil.
func Validate(list []models.BioLink) ([]models.BioLink, error) {
	clean := make([]models.BioLink, 0, len(list))
	entries := map[int]string{}

	for i, l := range list {
		u := strings.TrimSpace(l.URL)
		if u == "" {
			continue
		}
		key := strings.TrimSpace(l.ID)
		if msg := checkEntry(key, u); msg != "" {
			entries[i] = msg
			continue
		}
		clean = append(clean, models.BioLink{ID: key, URL: u})
	}
	if len(clean) > MaxLinks && len(entries) == 0 {
		entries[len(list)-1] = fmt.Sprintf("At most %d links are allowed", MaxLinks)
	}
	if len(entries) > 0 {
		return nil, &InvalidError{Entries: entries}
	}
	return clean, nil
}

func checkEntry(key, u string) string {
	if key == "" {
		return "Choose a platform"
	}
	p, ok := LookupPlatform(key)
	if ok && p.Pattern != nil {
		if !p.Pattern.MatchString(u) {
			return fmt.Sprintf("Enter a valid %s link", p.Label)
		}
		return ""
	}
	if !isAbsoluteHTTP(u) {
		return "Enter a valid URL starting with http:// or https://"
	}
	return ""
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	return host != "" && (strings.Contains(host, ".") || host == "localhost")
}

// Move removes the element at from and inserts it at to. The input is not
// modified.
func Move(list []models.BioLink, from, to int) ([]models.BioLink, error) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, ErrOutOfRange
	}
	out := models.CloneLinks(list)
	item := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]models.BioLink{item}, out[to:]...)...)
	return out, nil
}

// Equal compares two lists entry by entry.
func Equal(a, b []models.BioLink) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
