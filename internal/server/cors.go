package server

import (
	"net/http"
	"net/url"
)

// corsHeaders attaches the permissive cross-origin policy the tracking SDK
// relies on: the scheme and host of the request's Referer are echoed back as
// the allowed origin, verbatim and without an allow-list. When no usable
// Referer is present the headers are simply omitted; a same-origin or
// non-browser caller does not need them.
func corsHeaders(w http.ResponseWriter, r *http.Request) {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", u.Scheme+"://"+u.Host)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "X-Requested-With")
}
