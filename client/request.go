package client

import (
	"encoding/json"
	"net/http"
)

// Request is one logical API call. It is copied, never mutated, when retried.
type Request struct {
	Method string
	Path   string // appended to the API base URL, e.g. "/auth/me/"
	Body   any    // JSON-encoded when non-nil

	// Attempt counts authorization retries already made for this call. The pipeline
	// retries a 401 only while Attempt is 0.
	Attempt int

	// SkipRefresh exempts the call from 401 recovery. Set on the credential endpoints
	// themselves (login, register, refresh), where a 401 means wrong input rather than an
	// expired access token.
	SkipRefresh bool

	// Anonymous sends the call without an access token even when one is held. The API
	// rejects a stale bearer header even on public endpoints.
	Anonymous bool
}

// NewRequest builds a Request for method and path with an optional JSON body.
func NewRequest(method, path string, body any) *Request {
	return &Request{Method: method, Path: path, Body: body}
}

// retry returns a copy of r for the authorization retry.
func (r *Request) retry() *Request {
	c := *r
	c.Attempt++
	return &c
}

// Response is the raw outcome of a transmission.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}
