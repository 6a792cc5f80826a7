package common

import (
	"net/http"
	"time"
)

// Version is the tanksense release version, reported in the User-Agent.
const Version = "0.9.0"

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set
// and a bounded per-request timeout.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: "TankSense/" + Version,
		},
		Timeout: timeout,
	}
}
