package render

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"unicode/utf8"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"excerpt": excerpt,
}).ParseFS(templateFS, "templates/*.html"))

type profilePage struct {
	*View
	CanonicalURL string
}

type notFoundPage struct {
	Username string
}

// WriteProfile renders the public page. baseURL, when set, becomes the
// og:url prefix.
func WriteProfile(w http.ResponseWriter, v *View, baseURL string) error {
	page := profilePage{View: v}
	if baseURL != "" {
		page.CanonicalURL = baseURL + "/u/" + v.Username
	}
	return execute(w, http.StatusOK, "profile.html", page)
}

// WriteNotFound renders the dedicated not-found page with 404.
func WriteNotFound(w http.ResponseWriter, username string) error {
	return execute(w, http.StatusNotFound, "not_found.html", notFoundPage{Username: username})
}

func execute(w http.ResponseWriter, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
