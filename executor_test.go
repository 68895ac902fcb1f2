package storefront

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func unauthorized() error {
	return &APIError{StatusCode: http.StatusUnauthorized, Body: []byte(`{"message":"token expired"}`)}
}

func TestExecutorFailsFastWithoutSession(t *testing.T) {
	var opCalls int32
	exec := NewExecutor(NewSessionStore(), func(context.Context, string) (Session, error) {
		t.Fatal("refresh must not run without a session")
		return Session{}, nil
	})

	err := exec.Do(context.Background(), func(context.Context, string) error {
		atomic.AddInt32(&opCalls, 1)
		return nil
	})

	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %T (%v)", err, err)
	}
	if atomic.LoadInt32(&opCalls) != 0 {
		t.Fatalf("expected zero operation calls, got %d", opCalls)
	}
}

func TestExecutorConcurrentCallsShareOneRefresh(t *testing.T) {
	store := NewSessionStore()
	store.Set(Session{AccessToken: "stale", RefreshToken: "r1"})

	var refreshCount int32
	exec := NewExecutor(store, func(ctx context.Context, refreshToken string) (Session, error) {
		atomic.AddInt32(&refreshCount, 1)
		if refreshToken != "r1" {
			t.Errorf("refresh called with token %q, want %q", refreshToken, "r1")
		}
		time.Sleep(30 * time.Millisecond)
		return Session{AccessToken: "fresh", RefreshToken: "r2"}, nil
	})

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = exec.Do(context.Background(), func(_ context.Context, token string) error {
				if token == "stale" {
					return unauthorized()
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&refreshCount); got != 1 {
		t.Fatalf("expected exactly one refresh, got %d", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d failed: %v", i, err)
		}
	}
	sess, ok := store.Get()
	if !ok || sess.AccessToken != "fresh" || sess.RefreshToken != "r2" {
		t.Fatalf("store not replaced wholesale: %+v ok=%v", sess, ok)
	}
}

func TestExecutorRefreshFailureClearsSessionAndFailsWaiters(t *testing.T) {
	store := NewSessionStore()
	store.Set(Session{AccessToken: "stale", RefreshToken: "r1"})

	cause := errors.New("refresh token revoked")
	var refreshCount int32
	exec := NewExecutor(store, func(context.Context, string) (Session, error) {
		atomic.AddInt32(&refreshCount, 1)
		time.Sleep(20 * time.Millisecond)
		return Session{}, cause
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = exec.Do(context.Background(), func(context.Context, string) error {
				return unauthorized()
			})
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&refreshCount); got != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", got)
	}
	for i, err := range errs {
		if !IsAuthError(err) {
			t.Fatalf("caller %d: expected AuthError, got %T (%v)", i, err, err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("caller %d: AuthError must carry the original cause, got %v", i, err)
		}
	}
	if _, ok := store.Get(); ok {
		t.Fatalf("refresh failure must clear the session store")
	}
}

func TestExecutorRetriesExactlyOncePerCall(t *testing.T) {
	store := NewSessionStore()
	store.Set(Session{AccessToken: "stale", RefreshToken: "r1"})

	var refreshCount, opCalls int32
	exec := NewExecutor(store, func(context.Context, string) (Session, error) {
		atomic.AddInt32(&refreshCount, 1)
		return Session{AccessToken: "fresh", RefreshToken: "r2"}, nil
	})

	// The operation stays unauthorized even after the refresh. The executor
	// must surface a terminal AuthError instead of looping.
	err := exec.Do(context.Background(), func(context.Context, string) error {
		atomic.AddInt32(&opCalls, 1)
		return unauthorized()
	})

	if !IsAuthError(err) {
		t.Fatalf("expected terminal AuthError, got %T (%v)", err, err)
	}
	if got := atomic.LoadInt32(&refreshCount); got != 1 {
		t.Fatalf("expected one refresh, got %d", got)
	}
	if got := atomic.LoadInt32(&opCalls); got != 2 {
		t.Fatalf("expected the operation to run exactly twice, got %d", got)
	}
}

func TestExecutorSkipsRefreshWhenSessionAlreadyReplaced(t *testing.T) {
	store := NewSessionStore()
	store.Set(Session{AccessToken: "fresh", RefreshToken: "r2"})

	var refreshCount int32
	exec := NewExecutor(store, func(context.Context, string) (Session, error) {
		atomic.AddInt32(&refreshCount, 1)
		return Session{AccessToken: "fresher", RefreshToken: "r3"}, nil
	})

	// The call started with a token that is no longer the stored one; another
	// call already refreshed. No second network refresh should happen.
	sess, err := exec.refreshSession(context.Background(), "stale")
	if err != nil {
		t.Fatalf("refreshSession: %v", err)
	}
	if sess.AccessToken != "fresh" {
		t.Fatalf("expected the already-stored session, got %+v", sess)
	}
	if got := atomic.LoadInt32(&refreshCount); got != 0 {
		t.Fatalf("expected zero refresh calls, got %d", got)
	}
}

func TestExecutorRefreshNotifyFiresAfterStoreUpdate(t *testing.T) {
	store := NewSessionStore()
	store.Set(Session{AccessToken: "stale", RefreshToken: "r1"})

	var notified Session
	exec := NewExecutor(store, func(context.Context, string) (Session, error) {
		return Session{AccessToken: "fresh", RefreshToken: "r2"}, nil
	}).WithRefreshNotify(func(sess Session) {
		// The store must already hold the new pair when the callback fires.
		current, ok := store.Get()
		if !ok || current.AccessToken != sess.AccessToken {
			t.Errorf("notification fired before the store was updated: store=%+v notified=%+v", current, sess)
		}
		notified = sess
	})

	err := exec.Do(context.Background(), func(_ context.Context, token string) error {
		if token == "stale" {
			return unauthorized()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if notified.AccessToken != "fresh" {
		t.Fatalf("refresh notification not delivered, got %+v", notified)
	}
}
