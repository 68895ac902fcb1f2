package storefront

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stremovskyy/recorder"

	"github.com/craftloom/go-storefront/consts"
	"github.com/craftloom/go-storefront/log"
)

type Option func(*config) error

type config struct {
	baseURL string

	httpClient *http.Client
	logger     log.Logger
	logBodies  bool

	retryAttempts int
	retryWait     time.Duration
	recorder      recorder.Recorder

	sessions  *SessionStore
	refresh   RefreshFunc
	onRefresh func(Session)
}

func defaultConfig() config {
	return config{
		baseURL: consts.DefaultBackendBaseURL,
		// Every backend call is bounded; a timed-out call is a NetworkError.
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		logger:        log.NewDefault(),
		retryAttempts: 1,
		retryWait:     300 * time.Millisecond,
	}
}

// WithBaseURL points the client at a backend other than the default staging URL.
func WithBaseURL(baseURL string) Option {
	return func(cfg *config) error {
		baseURL = strings.TrimSpace(baseURL)
		if baseURL == "" {
			return errors.New("base url is empty")
		}
		cfg.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) error {
		if client == nil {
			return errors.New("http client is nil")
		}
		cfg.httpClient = client
		return nil
	}
}

// WithTimeout sets http client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout <= 0 {
			return errors.New("timeout must be > 0")
		}
		cfg.httpClient.Timeout = timeout
		return nil
	}
}

func WithLogger(logger log.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			cfg.logger = log.NopLogger{}
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithLogHTTPBodies enables verbose request/response body logging for debugging.
//
// Disabled by default because bodies may contain sensitive data.
func WithLogHTTPBodies(enabled bool) Option {
	return func(cfg *config) error {
		cfg.logBodies = enabled
		return nil
	}
}

// WithRecorder attaches a traffic recorder.
func WithRecorder(r recorder.Recorder) Option {
	return func(cfg *config) error {
		cfg.recorder = r
		return nil
	}
}

func WithRetry(attempts int, wait time.Duration) Option {
	return func(cfg *config) error {
		if attempts <= 0 {
			return errors.New("retry attempts must be > 0")
		}
		if wait <= 0 {
			return errors.New("retry wait must be > 0")
		}
		cfg.retryAttempts = attempts
		cfg.retryWait = wait
		return nil
	}
}

// WithSessionStore injects a caller-owned session store. By default the client
// creates its own process-scoped store.
func WithSessionStore(store *SessionStore) Option {
	return func(cfg *config) error {
		if store == nil {
			return errors.New("session store is nil")
		}
		cfg.sessions = store
		return nil
	}
}

// WithRefreshFunc replaces the default refresh call (POST /auth/refresh-token)
// with a caller-supplied procedure.
func WithRefreshFunc(refresh RefreshFunc) Option {
	return func(cfg *config) error {
		if refresh == nil {
			return errors.New("refresh func is nil")
		}
		cfg.refresh = refresh
		return nil
	}
}

// WithRefreshNotify registers a callback invoked after every successful token
// refresh, once the new Session is already stored.
func WithRefreshNotify(fn func(Session)) Option {
	return func(cfg *config) error {
		cfg.onRefresh = fn
		return nil
	}
}
