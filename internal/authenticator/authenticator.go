package authenticator

import "net/http"

// Authenticator guards routes by session state.
type Authenticator interface {
	LoadSession(h http.Handler) http.Handler
	RequireSession(h http.Handler) http.Handler
	RedirectIfAuthenticated(h http.Handler) http.Handler
}
