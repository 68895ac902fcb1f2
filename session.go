package storefront

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the access/refresh token pair of the signed-in user.
//
// Both tokens are always replaced together: a Session is immutable once stored.
type Session struct {
	AccessToken  string
	RefreshToken string

	// ExpiresAt is a hint taken from the access token's exp claim when the
	// token is a JWT. Zero when unknown. Expiry is still decided by the
	// backend: a 401 is authoritative, the hint is not.
	ExpiresAt time.Time
}

// Valid reports whether the session carries both tokens.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// SessionStore is the single source of truth for the current Session.
// It is process-scoped and mutated only by login, refresh and logout.
type SessionStore struct {
	mu   sync.RWMutex
	sess Session
	ok   bool
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Get returns the current session, if any.
func (st *SessionStore) Get() (Session, bool) {
	if st == nil {
		return Session{}, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sess, st.ok
}

// Set replaces the stored session wholesale. A concurrent reader never
// observes a partially updated token pair. The expiry hint is filled from the
// access token when the caller did not provide one.
func (st *SessionStore) Set(sess Session) {
	if st == nil {
		return
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = expiryHint(sess.AccessToken)
	}
	st.mu.Lock()
	st.sess = sess
	st.ok = sess.Valid()
	st.mu.Unlock()
}

// Clear removes the session. Subsequent authenticated calls fail fast with an
// AuthError without touching the network.
func (st *SessionStore) Clear() {
	if st == nil {
		return
	}
	st.mu.Lock()
	st.sess = Session{}
	st.ok = false
	st.mu.Unlock()
}

// expiryHint reads the exp claim of a JWT access token without verifying its
// signature. The client has no signing key; verification is the backend's job.
func expiryHint(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
