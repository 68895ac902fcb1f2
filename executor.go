package storefront

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/craftloom/go-storefront/log"
)

// Operation is a backend call parameterized by the current access token.
type Operation func(ctx context.Context, accessToken string) error

// RefreshFunc exchanges a refresh token for a new Session.
type RefreshFunc func(ctx context.Context, refreshToken string) (Session, error)

// Executor runs operations that need a bearer token and handles token expiry
// transparently: on an unauthorized response it refreshes the session once and
// retries the operation once. Concurrent callers that hit an expired token
// share a single in-flight refresh.
type Executor struct {
	sessions  *SessionStore
	refresh   RefreshFunc
	onRefresh func(Session)
	logger    log.Logger

	// group deduplicates concurrent refreshes: every caller that observes a
	// 401 while a refresh is in flight awaits the same result. The key is
	// forgotten once the flight resolves, so a later 401 starts a new cycle.
	group singleflight.Group
}

const refreshKey = "session-refresh"

func NewExecutor(sessions *SessionStore, refresh RefreshFunc) *Executor {
	return &Executor{
		sessions: sessions,
		refresh:  refresh,
		logger:   log.NopLogger{},
	}
}

// WithLogger replaces the executor's logger.
func (e *Executor) WithLogger(logger log.Logger) *Executor {
	if e == nil {
		return nil
	}
	if logger == nil {
		logger = log.NopLogger{}
	}
	e.logger = logger
	return e
}

// WithRefreshNotify registers a callback invoked after a successful refresh,
// once the new Session is already stored. Lets a caller-owned session (for
// example one persisted by the embedding app) stay in sync.
func (e *Executor) WithRefreshNotify(fn func(Session)) *Executor {
	if e == nil {
		return nil
	}
	e.onRefresh = fn
	return e
}

// Do executes op with the current access token.
//
// With no session present it fails immediately with an AuthError and performs
// zero network calls. On an unauthorized result it refreshes the session
// (joining an already in-flight refresh if one exists) and retries op exactly
// once. A second unauthorized result after the retry is terminal and never
// triggers another refresh for this call.
func (e *Executor) Do(ctx context.Context, op Operation) error {
	if e == nil || e.sessions == nil {
		return &AuthError{Message: "no session store"}
	}
	sess, ok := e.sessions.Get()
	if !ok {
		return &AuthError{Message: "no authentication token"}
	}

	err := op(ctx, sess.AccessToken)
	if !isUnauthorized(err) {
		return err
	}

	if e.refresh == nil {
		e.sessions.Clear()
		e.logger.Warnf("access token rejected and no refresh configured, forcing logout")
		return &AuthError{Message: "token expired and no refresh configured", Cause: err}
	}

	fresh, refreshErr := e.refreshSession(ctx, sess.AccessToken)
	if refreshErr != nil {
		return refreshErr
	}

	if err = op(ctx, fresh.AccessToken); isUnauthorized(err) {
		return &AuthError{Message: "request unauthorized after token refresh", Cause: err}
	}
	return err
}

// refreshSession refreshes the stored session, sharing one in-flight refresh
// across concurrent callers. staleToken is the access token the caller just got
// rejected with: when the store already holds a different token, another caller
// finished a refresh in the meantime and no new refresh is performed.
func (e *Executor) refreshSession(ctx context.Context, staleToken string) (Session, error) {
	v, err, _ := e.group.Do(refreshKey, func() (any, error) {
		current, ok := e.sessions.Get()
		if !ok {
			return nil, &AuthError{Message: "no authentication token"}
		}
		if current.AccessToken != staleToken {
			// Already refreshed by a call that resolved before we joined.
			return current, nil
		}

		fresh, err := e.refresh(ctx, current.RefreshToken)
		if err != nil {
			e.sessions.Clear()
			e.logger.Warnf("session refresh failed, forcing logout: %v", err)
			return nil, &AuthError{Message: "session refresh failed", Cause: err}
		}
		if !fresh.Valid() {
			e.sessions.Clear()
			e.logger.Warnf("session refresh returned an incomplete token pair, forcing logout")
			return nil, &AuthError{Message: "session refresh returned an incomplete token pair"}
		}

		e.sessions.Set(fresh)
		e.logger.Debugf("session refreshed")
		if e.onRefresh != nil {
			e.onRefresh(fresh)
		}
		return fresh, nil
	})
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) {
			return Session{}, err
		}
		return Session{}, &AuthError{Message: "session refresh failed", Cause: err}
	}
	return v.(Session), nil
}

func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
