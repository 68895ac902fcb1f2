package storefront

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/craftloom/go-storefront/consts"
	"github.com/craftloom/go-storefront/log"
	"github.com/craftloom/go-storefront/payment"
)

// Navigator performs the browser hand-off to the hosted checkout page.
// Injected so tests can assert "navigate was called once with URL X".
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error { return f(url) }

// CheckoutState is the coordinator's lifecycle state.
type CheckoutState int32

const (
	CheckoutIdle CheckoutState = iota
	CheckoutCreating
	CheckoutRedirecting
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutIdle:
		return "idle"
	case CheckoutCreating:
		return "creating"
	case CheckoutRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// PaymentSessionCreator is the slice of the payment service the coordinator needs.
type PaymentSessionCreator interface {
	CreateSession(ctx context.Context, orderID string, req *payment.CreateSessionRequest, runOpts ...RunOption) (*payment.Session, error)
}

// CheckoutParams configures a single checkout hand-off.
type CheckoutParams struct {
	Provider  consts.PaymentProvider
	ReturnURL string
	CancelURL string

	// AccessToken optionally bypasses the client's session store, for callers
	// that own their tokens (the BFF proxy forwards the browser's bearer here).
	AccessToken string
}

// PaymentCoordinator creates a payment session for an order and hands off to
// the payment provider by navigating the browser. One coordinator instance
// serves one checkout surface; the state guard rejects a second invocation
// while the first is still in flight, so a double-click cannot fire two
// payment sessions for one order.
type PaymentCoordinator struct {
	payments  PaymentSessionCreator
	navigator Navigator
	logger    log.Logger

	state atomic.Int32
}

func NewPaymentCoordinator(payments PaymentSessionCreator, navigator Navigator) *PaymentCoordinator {
	return &PaymentCoordinator{
		payments:  payments,
		navigator: navigator,
		logger:    log.NopLogger{},
	}
}

// WithLogger replaces the coordinator's logger.
func (pc *PaymentCoordinator) WithLogger(logger log.Logger) *PaymentCoordinator {
	if pc == nil {
		return nil
	}
	if logger == nil {
		logger = log.NopLogger{}
	}
	pc.logger = logger
	return pc
}

// State returns the coordinator's current lifecycle state.
func (pc *PaymentCoordinator) State() CheckoutState {
	if pc == nil {
		return CheckoutIdle
	}
	return CheckoutState(pc.state.Load())
}

// Reset returns the coordinator to idle. Meant for surfaces that stay in the
// app after a hand-off did not leave the page (for example the provider tab
// was opened in a new window and the user came back).
func (pc *PaymentCoordinator) Reset() {
	if pc == nil {
		return
	}
	pc.state.Store(int32(CheckoutIdle))
}

// Checkout creates a payment session for orderID and, when the session carries
// a checkout URL, performs exactly one browser navigation to it.
//
// The returned Session always reflects the full backend payload, so callers
// can render bank-transfer or COD details for sessions that have no URL.
// A failed creation surfaces as a *CheckoutError and is never retried here;
// whether to retry is the caller's decision.
func (pc *PaymentCoordinator) Checkout(ctx context.Context, orderID string, params CheckoutParams) (*payment.Session, error) {
	if pc == nil || pc.payments == nil {
		return nil, errors.New("payment coordinator is not initialized")
	}
	if orderID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "orderID", Message: "is required"}}}
	}

	if !pc.state.CompareAndSwap(int32(CheckoutIdle), int32(CheckoutCreating)) {
		pc.logger.Debugf("checkout rejected: already %s", pc.State())
		return nil, ErrCheckoutInProgress
	}

	req := &payment.CreateSessionRequest{Provider: params.Provider}
	if params.ReturnURL != "" {
		req.ReturnURL = &params.ReturnURL
	}
	if params.CancelURL != "" {
		req.CancelURL = &params.CancelURL
	}

	var runOpts []RunOption
	if params.AccessToken != "" {
		runOpts = append(runOpts, WithAccessToken(params.AccessToken))
	}

	sess, err := pc.payments.CreateSession(ctx, orderID, req, runOpts...)
	if err != nil {
		pc.state.Store(int32(CheckoutIdle))
		return nil, &CheckoutError{Message: checkoutMessage(err), Cause: err}
	}
	if sess == nil {
		pc.state.Store(int32(CheckoutIdle))
		return nil, &CheckoutError{Message: "payment session could not be created"}
	}

	if sess.PaymentURL == "" {
		// COD / bank transfer: the UI renders the payload, nothing to navigate to.
		pc.state.Store(int32(CheckoutIdle))
		pc.logger.Infof("payment session for order %s has no checkout URL, skipping navigation", orderID)
		return sess, nil
	}

	pc.state.Store(int32(CheckoutRedirecting))
	if pc.navigator != nil {
		if err := pc.navigator.Navigate(sess.PaymentURL); err != nil {
			pc.state.Store(int32(CheckoutIdle))
			return sess, &CheckoutError{Message: "could not open the checkout page", Cause: err}
		}
	}
	// Navigation is terminal for this coordinator call: on success the browser
	// leaves the app, so the state intentionally stays at redirecting.
	pc.logger.Infof("navigated to checkout for order %s", orderID)
	return sess, nil
}

func checkoutMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return "payment session could not be created"
}
