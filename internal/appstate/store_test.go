package appstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

func TestStore_NotifiesOnlyOnChange(t *testing.T) {
	s := New()
	calls := 0
	unsub := s.Subscribe(func(Snapshot) { calls++ })

	p := &models.Profile{AccountID: "u1", Bio: "hi"}
	s.SetProfile(p)
	s.SetProfile(&models.Profile{AccountID: "u1", Bio: "hi"})
	require.Equal(t, 1, calls)

	s.SetSession(&models.Session{AccountID: "u1"})
	s.SetSession(&models.Session{AccountID: "u1"})
	require.Equal(t, 2, calls)

	unsub()
	s.SetProfile(&models.Profile{AccountID: "u1", Bio: "changed"})
	require.Equal(t, 2, calls)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	links := []models.BioLink{{ID: "github", URL: "https://github.com/a"}}
	s.SetProfile(&models.Profile{AccountID: "u1", BioLinks: links})

	got := s.Profile()
	got.BioLinks[0].URL = "mutated"
	links[0].URL = "mutated too"

	require.Equal(t, "https://github.com/a", s.Profile().BioLinks[0].URL)
}

func TestSelect(t *testing.T) {
	s := New()
	var seen []string
	unsub := Select(s, func(snap Snapshot) string {
		if snap.Profile == nil {
			return ""
		}
		return snap.Profile.Username
	}, func(v string) { seen = append(seen, v) })
	defer unsub()

	s.SetProfile(&models.Profile{AccountID: "u1", Username: "alice"})
	// bio change does not touch the selected value
	s.SetProfile(&models.Profile{AccountID: "u1", Username: "alice", Bio: "hi"})
	s.SetProfile(&models.Profile{AccountID: "u1", Username: "bob", Bio: "hi"})
	s.Clear()

	require.Equal(t, []string{"", "alice", "bob", ""}, seen)
}
