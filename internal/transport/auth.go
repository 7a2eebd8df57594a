package transport

import "net/http"

// Authorize returns r with an Authorization bearer header when token is set.
// The input request is never modified; an empty token returns r as is.
func Authorize(r *http.Request, token string) *http.Request {
	if token == "" {
		return r
	}
	out := r.Clone(r.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}
