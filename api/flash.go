package api

import (
	"net/http"
	"net/url"
)

const flashCookie = "flash"

// setFlash stores a one-shot message shown by the next page rendered for
// this client.
func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) []string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	return []string{msg}
}

// redirectWithFlash flashes message and sends the client back to the index.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, message string) {
	setFlash(w, message)
	http.Redirect(w, r, "/", http.StatusFound)
}
