package platform

import (
	"net"
	"net/http"
	"time"
)

// Session is an authenticated HTTP session: a shared http.Client plus the
// fixed headers (cookie material included) the login flow produced. It is
// read-only once built and safe for concurrent use across workers.
type Session struct {
	client  *http.Client
	headers map[string]string
}

// NewSession builds a session from pre-resolved header material. The cookie
// header is expected to already carry csrftoken/sessionid; acquiring those is
// the login collaborator's concern.
func NewSession(headers map[string]string) *Session {
	h := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		h[k] = v
	}
	if _, ok := h["User-Agent"]; !ok {
		h["User-Agent"] = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if _, ok := h["Content-Type"]; !ok {
		h["Content-Type"] = "application/json"
	}
	return &Session{
		client:  newPlatformHTTPClient(),
		headers: h,
	}
}

// apply stamps the session headers onto a request. Extra headers win over
// session headers so course-scoped cookies can extend the base cookie.
func (s *Session) apply(req *http.Request, extra map[string]string) {
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		if k == "Cookie" {
			if base := s.headers["Cookie"]; base != "" {
				req.Header.Set("Cookie", base+"; "+v)
				continue
			}
		}
		req.Header.Set(k, v)
	}
}

// newPlatformHTTPClient creates an HTTP client tuned for many small JSON
// calls against a single host.
func newPlatformHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
}
