package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/token"
	"github.com/jrsteele09/weeb-client/token/refresh"
)

const HeaderRequestID = "X-Request-ID"

// Pipeline sends API requests, signing each one with the access token in effect at send
// time and recovering once from an expired token through the refresh Coordinator.
type Pipeline struct {
	baseURL     string
	httpClient  *http.Client
	store       *token.Store
	invalidator refresh.Invalidator
	coordinator *refresh.Coordinator
}

// Option defines a function type to modify the Pipeline instance.
type Option func(*Pipeline)

// WithHTTPClient sets the http.Client used for every transmission. Its Timeout is the
// only timeout the pipeline applies.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) {
		p.httpClient = c
	}
}

// WithInvalidator registers who is told when the session is cleared after an
// unrecoverable refresh failure.
func WithInvalidator(inv refresh.Invalidator) Option {
	return func(p *Pipeline) {
		p.invalidator = inv
	}
}

// New creates a Pipeline for the API at baseURL. The store is read on every send and
// mutated only by the Coordinator.
func New(baseURL string, store *token.Store, options ...Option) *Pipeline {
	p := &Pipeline{
		baseURL: baseURL,
		store:   store,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = http.DefaultClient
	}
	p.coordinator = refresh.NewCoordinator(store, p, p.invalidator)
	return p
}

// Coordinator exposes the refresh coordinator, e.g. to inspect it in tests.
func (p *Pipeline) Coordinator() *refresh.Coordinator {
	return p.coordinator
}

// Send transmits req and returns the response unchanged, except that a 401 on a call that
// has not been retried yet is recovered: the access token is renewed (joining any refresh
// already in flight) and the call is sent once more with the new token.
//
// A 401 for a token that has already been replaced, because a refresh finished while the
// call was on the wire, is retried with the current token without renewing again.
//
// When no refresh credential is stored the original 401 response is returned. When the
// refresh itself fails, the refresh error is returned instead of the 401.
func (p *Pipeline) Send(ctx context.Context, req *Request) (*Response, error) {
	sent := p.store.AccessToken()
	resp, err := p.transmit(ctx, req, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.SkipRefresh || req.Attempt > 0 {
		return resp, nil
	}

	retry := req.retry()
	if current := p.store.AccessToken(); !req.Anonymous && current != nil && (sent == nil || sent.AccessToken != current.AccessToken) {
		log.Debug().Str("path", req.Path).Int("attempt", retry.Attempt).Msg("Retrying with access token renewed meanwhile")
		return p.transmit(ctx, retry, current)
	}

	access, err := p.coordinator.Renew(ctx)
	if errors.Is(err, errors.ErrNoRefreshCredential) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Str("path", req.Path).Int("attempt", retry.Attempt).Msg("Retrying with renewed access token")
	return p.transmit(ctx, retry, &oauth2.Token{AccessToken: access, TokenType: "Bearer"})
}

// Do sends req and decodes a 2xx JSON body into out (which may be nil). Any other status
// becomes a *StatusError.
func (p *Pipeline) Do(ctx context.Context, req *Request, out any) error {
	resp, err := p.Send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newStatusError(req, resp)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal response from %s: %w", req.Path, err)
	}
	return nil
}

// RefreshToken exchanges a refresh credential at the refresh endpoint. It bypasses 401
// recovery and implements refresh.Refresher.
func (p *Pipeline) RefreshToken(ctx context.Context, refreshToken string) (*apimodel.RefreshResponse, error) {
	req := &Request{
		Method:      http.MethodPost,
		Path:        apimodel.RouteAuthRefresh,
		Body:        apimodel.RefreshRequest{Refresh: refreshToken},
		SkipRefresh: true,
		Anonymous:   true,
	}

	var out apimodel.RefreshResponse
	if err := p.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// transmit is the lower level call that performs exactly one HTTP exchange.
func (p *Pipeline) transmit(ctx context.Context, req *Request, access *oauth2.Token) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, p.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != nil && access.AccessToken != "" && !req.Anonymous {
		access.SetAuthHeader(httpReq)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(httpResp.Body)

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Int("attempt", req.Attempt).
		Str("request_id", requestID).
		Msg("API request")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}
