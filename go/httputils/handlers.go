package httputils

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// HealthzAndHTTPS wraps h so that GCE load-balancer health checks always
// succeed locally and every other request is redirected to HTTPS when the
// load balancer reports it arrived over plain HTTP.
func HealthzAndHTTPS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && strings.HasPrefix(r.Header.Get("User-Agent"), "GoogleHC") {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Header.Get(SCHEME_AT_LOAD_BALANCER_HEADER) == "http" {
			u := *r.URL
			u.Scheme = "https"
			u.Host = r.Host
			http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// CrossOriginResourcePolicy wraps h, adding a
// "Cross-Origin-Resource-Policy: cross-origin" header to every response so
// that its responses may be loaded by pages of any origin.
func CrossOriginResourcePolicy(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.ServeHTTP(w, r)
	})
}

// GetWithContext issues a GET request through c, honoring ctx cancellation.
func GetWithContext(ctx context.Context, c *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostWithContext issues a POST request through c, honoring ctx cancellation.
func PostWithContext(ctx context.Context, c *http.Client, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}
