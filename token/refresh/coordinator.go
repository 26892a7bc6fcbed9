package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/internal/errors"
)

// CredentialStore is the part of token.Store the coordinator mutates. Writes are tied to
// the session generation a refresh started in, so a logout or a new login made while the
// refresh was running is never overwritten by its result.
type CredentialStore interface {
	Generation() uint64
	GetRefresh() string
	HasSession() bool
	UpdateIfCurrent(generation uint64, access, refresh string) (bool, error)
	ClearIfCurrent(generation uint64) (bool, error)
}

// Refresher exchanges a refresh credential for a new access token at the API.
type Refresher interface {
	RefreshToken(ctx context.Context, refresh string) (*apimodel.RefreshResponse, error)
}

// Invalidator is told when the session can no longer be recovered and has been cleared.
type Invalidator interface {
	SessionInvalidated(cause error)
}

// Coordinator turns authorization failures into at most one concurrent token refresh.
// Callers that fail while a refresh is in flight wait for that refresh instead of
// starting their own.
type Coordinator struct {
	store       CredentialStore
	refresher   Refresher
	invalidator Invalidator

	lock     sync.Mutex
	inFlight bool
	pending  PendingQueue
}

// NewCoordinator creates a Coordinator. invalidator may be nil.
func NewCoordinator(store CredentialStore, refresher Refresher, invalidator Invalidator) *Coordinator {
	return &Coordinator{
		store:       store,
		refresher:   refresher,
		invalidator: invalidator,
	}
}

// InFlight reports whether a refresh is currently running.
func (c *Coordinator) InFlight() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.inFlight
}

// Pending returns the number of callers waiting on the running refresh.
func (c *Coordinator) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pending.Len()
}

// Renew returns a fresh access token, joining the in-flight refresh if there is one.
//
// It returns errors.ErrNoRefreshCredential when nothing is stored to refresh with, and an
// error wrapping errors.ErrRefreshFailed when the API rejects the refresh. In both cases
// the store has been cleared and waiting callers have been rejected. When the session was
// cleared or replaced while the refresh ran, the result is discarded and everyone gets
// errors.ErrSessionInvalidated.
func (c *Coordinator) Renew(ctx context.Context) (string, error) {
	c.lock.Lock()
	if c.inFlight {
		h := c.pending.Enqueue()
		c.lock.Unlock()
		log.Debug().Uint64("seq", h.Seq).Msg("Waiting for in-flight token refresh")
		return h.Wait(ctx)
	}

	generation := c.store.Generation()
	refresh := c.store.GetRefresh()
	if refresh == "" {
		hadSession := c.store.HasSession()
		c.pending.RejectAll(errors.ErrSessionInvalidated)
		cleared := c.clearStore(generation)
		c.lock.Unlock()

		// Without a session there is nothing to invalidate, e.g. an anonymous call to a
		// protected endpoint.
		if hadSession && cleared {
			c.invalidate(errors.ErrNoRefreshCredential)
		}
		return "", errors.ErrNoRefreshCredential
	}
	c.inFlight = true
	c.lock.Unlock()

	// Waiting callers depend on this call, so one caller cancelling must not abort it.
	// The http.Client timeout still bounds it.
	resp, err := c.refresher.RefreshToken(context.WithoutCancel(ctx), refresh)
	if err == nil && resp.Access == "" {
		err = errors.ErrEmptyToken
	}

	c.lock.Lock()
	c.inFlight = false
	if err != nil {
		if !c.clearStore(generation) {
			return c.superseded()
		}
		err = fmt.Errorf("%w: %w", errors.ErrRefreshFailed, err)
		rejected := c.pending.RejectAll(err)
		c.lock.Unlock()

		log.Err(err).Int("rejected", len(rejected)).Msg("Token refresh failed, session cleared")
		c.invalidate(err)
		return "", err
	}

	applied, saveErr := c.store.UpdateIfCurrent(generation, resp.Access, resp.Refresh)
	if saveErr != nil {
		log.Err(saveErr).Msg("Failed to persist rotated refresh token")
	}
	if !applied {
		return c.superseded()
	}
	resolved := c.pending.ResolveAll(resp.Access)
	c.lock.Unlock()

	log.Debug().Int("resolved", len(resolved)).Bool("rotated", resp.Refresh != "").Msg("Token refreshed")
	return resp.Access, nil
}

// superseded rejects the waiters of a refresh whose session is gone. c.lock must be held;
// it is released.
func (c *Coordinator) superseded() (string, error) {
	rejected := c.pending.RejectAll(errors.ErrSessionInvalidated)
	c.lock.Unlock()

	log.Info().Int("rejected", len(rejected)).Msg("Session changed during token refresh, result discarded")
	return "", errors.ErrSessionInvalidated
}

// clearStore clears the session if it is still generation and reports whether it was.
func (c *Coordinator) clearStore(generation uint64) bool {
	cleared, err := c.store.ClearIfCurrent(generation)
	if err != nil {
		log.Err(err).Msg("Failed to clear credential store")
	}
	return cleared
}

func (c *Coordinator) invalidate(cause error) {
	if c.invalidator != nil {
		c.invalidator.SessionInvalidated(cause)
	}
}
