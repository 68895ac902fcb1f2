package storefront

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"

	"github.com/stremovskyy/recorder"

	"github.com/craftloom/go-storefront/account"
	"github.com/craftloom/go-storefront/catalog"
	"github.com/craftloom/go-storefront/consts"
	"github.com/craftloom/go-storefront/internal/httpclient"
	"github.com/craftloom/go-storefront/log"
	"github.com/craftloom/go-storefront/order"
	"github.com/craftloom/go-storefront/payment"
)

// Client is the main storefront SDK client.
//
// It covers:
//   - Account: authenticated profile reads/updates
//   - Payment: payment session creation for the checkout hand-off
//   - Orders: guest order flow, proxied verbatim
//   - Catalog: product statistics with graceful degradation
//
// Authenticated calls go through a refresh-then-retry executor; an expired
// access token is refreshed at most once per call, and concurrent calls share
// a single in-flight refresh.
type Client struct {
	cfg config

	http     *httpclient.Client
	sessions *SessionStore
	executor *Executor

	account *AccountService
	payment *PaymentService
	orders  *OrderService
	catalog *CatalogService
}

func NewClient(opts ...Option) (Storefront, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c := &Client{cfg: cfg}
	c.http = httpclient.New(cfg.httpClient, cfg.logger, cfg.retryAttempts, cfg.retryWait, nil, cfg.recorder, cfg.logBodies)

	c.sessions = cfg.sessions
	if c.sessions == nil {
		c.sessions = NewSessionStore()
	}

	refresh := cfg.refresh
	if refresh == nil {
		refresh = c.refreshSession
	}
	c.executor = NewExecutor(c.sessions, refresh).
		WithLogger(cfg.logger).
		WithRefreshNotify(cfg.onRefresh)

	c.account = &AccountService{c: c}
	c.payment = &PaymentService{c: c}
	c.orders = &OrderService{c: c}
	c.catalog = &CatalogService{c: c}
	return c, nil
}

// NewDefaultClient is a convenience wrapper around NewClient() with default configuration.
func NewDefaultClient() (Storefront, error) {
	return NewClient()
}

// NewClientWithRecorder attaches a traffic recorder.
func NewClientWithRecorder(rec recorder.Recorder, opts ...Option) (Storefront, error) {
	opts = append([]Option{WithRecorder(rec)}, opts...)
	return NewClient(opts...)
}

func (c *Client) Account() *AccountService { return c.account }
func (c *Client) Payment() *PaymentService { return c.payment }
func (c *Client) Orders() *OrderService    { return c.orders }
func (c *Client) Catalog() *CatalogService { return c.catalog }

// Sessions exposes the client's session store.
func (c *Client) Sessions() *SessionStore {
	if c == nil {
		return nil
	}
	return c.sessions
}

// Login stores the token pair obtained by the embedding app.
func (c *Client) Login(session Session) {
	if c == nil {
		return
	}
	c.sessions.Set(session)
}

// Logout clears the session; subsequent authenticated calls fail fast.
func (c *Client) Logout() {
	if c == nil {
		return
	}
	c.sessions.Clear()
}

// SetLogLevel updates SDK log level when current logger supports it.
func (c *Client) SetLogLevel(level log.Level) {
	if c == nil || c.cfg.logger == nil {
		return
	}
	if l, ok := c.cfg.logger.(interface{ SetLevel(log.Level) }); ok {
		l.SetLevel(level)
	}
}

// refreshSession is the default RefreshFunc: POST /auth/refresh-token.
func (c *Client) refreshSession(ctx context.Context, refreshToken string) (Session, error) {
	full, err := joinURL(c.cfg.baseURL, consts.AuthRefreshPath)
	if err != nil {
		return Session{}, err
	}
	var out struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if _, _, err := c.http.DoJSON(ctx, http.MethodPost, full, "", body, &out); err != nil {
		return Session{}, wrapAPIError(err)
	}
	return Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// authorized runs op through the refresh-then-retry executor, or directly when
// the caller supplied its own access token via WithAccessToken.
func (c *Client) authorized(ctx context.Context, runOpts []RunOption, op Operation) error {
	if tok := accessTokenOverride(runOpts); tok != "" {
		return op(ctx, tok)
	}
	return c.executor.Do(ctx, op)
}

func joinURL(base string, p string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	u.Path = path.Join(u.Path, p)
	return u.String(), nil
}

func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var hs *httpclient.HTTPStatusError
	if errors.As(err, &hs) {
		return &APIError{StatusCode: hs.StatusCode, Body: hs.Body}
	}
	var de *httpclient.DecodeError
	if errors.As(err, &de) {
		return &UnexpectedFormatError{Body: de.Body, Cause: de.Err}
	}
	if isTransportError(err) {
		return &NetworkError{Cause: err}
	}
	return err
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// =========================
// Account
// =========================

type AccountService struct{ c *Client }

// Profile returns the signed-in user's profile.
func (s *AccountService) Profile(ctx context.Context, runOpts ...RunOption) (*account.Profile, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.AccountProfilePath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, http.MethodGet, full, nil) {
		return nil, nil
	}
	var out account.Profile
	err = s.c.authorized(ctx, runOpts, func(ctx context.Context, token string) error {
		_, _, err := s.c.http.DoJSON(ctx, http.MethodGet, full, token, nil, &out)
		return wrapAPIError(err)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile patches the signed-in user's profile and returns the updated document.
func (s *AccountService) UpdateProfile(ctx context.Context, req *account.UpdateProfileRequest, runOpts ...RunOption) (*account.Profile, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateUpdateProfile(req); err != nil {
		return nil, err
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.AccountProfilePath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, http.MethodPatch, full, req) {
		return nil, nil
	}
	var out account.Profile
	err = s.c.authorized(ctx, runOpts, func(ctx context.Context, token string) error {
		_, _, err := s.c.http.DoJSON(ctx, http.MethodPatch, full, token, req, &out)
		return wrapAPIError(err)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// =========================
// Payment
// =========================

type PaymentService struct{ c *Client }

// CreateSession creates a payment session for an order.
func (s *PaymentService) CreateSession(ctx context.Context, orderID string, req *payment.CreateSessionRequest, runOpts ...RunOption) (*payment.Session, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCreatePayment(orderID, req); err != nil {
		return nil, err
	}

	full, err := joinURL(s.c.cfg.baseURL, fmt.Sprintf(consts.PaymentCreatePathFmt, url.PathEscape(orderID)))
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, http.MethodPost, full, req) {
		return nil, nil
	}
	var out payment.Session
	err = s.c.authorized(ctx, runOpts, func(ctx context.Context, token string) error {
		_, _, err := s.c.http.DoJSON(ctx, http.MethodPost, full, token, req, &out)
		return wrapAPIError(err)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// =========================
// Orders (guest flow)
// =========================

type OrderService struct{ c *Client }

// CreateGuestOrder places an order without authentication.
func (s *OrderService) CreateGuestOrder(ctx context.Context, req *order.GuestOrderRequest, runOpts ...RunOption) (*order.GuestOrderResponse, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateGuestOrder(req); err != nil {
		return nil, err
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.GuestOrdersPath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, http.MethodPost, full, req) {
		return nil, nil
	}
	var out order.GuestOrderResponse
	if _, _, err := s.c.http.DoJSON(ctx, http.MethodPost, full, "", req, &out); err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// ApplyVoucher validates a voucher code against an order total.
func (s *OrderService) ApplyVoucher(ctx context.Context, req *order.ApplyVoucherRequest, runOpts ...RunOption) (*order.VoucherResult, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateApplyVoucher(req); err != nil {
		return nil, err
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.GuestApplyVoucherPath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, http.MethodPost, full, req) {
		return nil, nil
	}
	var out order.VoucherResult
	if _, _, err := s.c.http.DoJSON(ctx, http.MethodPost, full, "", req, &out); err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// Forward posts body verbatim to a guest endpoint and returns the upstream
// status code and body unchanged, non-2xx included. Transport failures are the
// only error case. This is the building block for byte-for-byte proxying.
func (s *OrderService) Forward(ctx context.Context, endpointPath string, body []byte) (int, []byte, error) {
	if s == nil || s.c == nil {
		return 0, nil, errors.New("client is nil")
	}
	full, err := joinURL(s.c.cfg.baseURL, endpointPath)
	if err != nil {
		return 0, nil, err
	}
	resp, raw, err := s.c.http.DoJSON(ctx, http.MethodPost, full, "", body, nil)
	if err != nil {
		var hs *httpclient.HTTPStatusError
		if errors.As(err, &hs) {
			return hs.StatusCode, hs.Body, nil
		}
		return 0, nil, wrapAPIError(err)
	}
	return resp.StatusCode, raw, nil
}

// =========================
// Catalog
// =========================

type CatalogService struct{ c *Client }

// Statistics returns the sales statistics for a product.
func (s *CatalogService) Statistics(ctx context.Context, productID string, runOpts ...RunOption) (*catalog.Statistics, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if productID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "productID", Message: "is required"}}}
	}

	full, err := joinURL(s.c.cfg.baseURL, fmt.Sprintf(consts.ProductStatisticsPathFmt, url.PathEscape(productID)))
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, http.MethodGet, full, nil) {
		return nil, nil
	}
	var out catalog.Statistics
	if _, _, err := s.c.http.DoJSON(ctx, http.MethodGet, full, "", nil, &out); err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// SoldQuantity returns the sold counter for a product, degrading to zero on
// any failure (timeouts and malformed upstream data included) so an unrelated
// page never breaks on a statistics hiccup.
func (s *CatalogService) SoldQuantity(ctx context.Context, productID string) int64 {
	stats, err := s.Statistics(ctx, productID)
	if err != nil || stats == nil {
		if s != nil && s.c != nil {
			s.c.cfg.logger.Warnf("product statistics unavailable for %s, reporting 0 sold: %v", productID, err)
		}
		return 0
	}
	return stats.SoldQuantity
}

// =========================
// Validation
// =========================

func validateUpdateProfile(req *account.UpdateProfileRequest) error {
	ve := &ValidationError{}
	if req.FullName == nil && req.PhoneNumber == nil && req.Avatar == nil {
		ve.Add("request", "at least one field must be set")
	}
	if req.FullName != nil && *req.FullName == "" {
		ve.Add("fullName", "must not be empty when set")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCreatePayment(orderID string, req *payment.CreateSessionRequest) error {
	ve := &ValidationError{}
	if orderID == "" {
		ve.Add("orderID", "is required")
	}
	if req.Provider == "" {
		ve.Add("provider", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateGuestOrder(req *order.GuestOrderRequest) error {
	ve := &ValidationError{}
	if req.FullName == "" {
		ve.Add("fullName", "is required")
	}
	if req.PhoneNumber == "" {
		ve.Add("phoneNumber", "is required")
	}
	if req.ShippingAddress == "" {
		ve.Add("shippingAddress", "is required")
	}
	if len(req.Items) == 0 {
		ve.Add("items", "must contain at least one item")
	}
	for i, it := range req.Items {
		if it.ProductID == "" {
			ve.Add(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if it.Quantity <= 0 {
			ve.Add(fmt.Sprintf("items[%d].quantity", i), "must be > 0")
		}
		if it.UnitPrice.IsNegative() {
			ve.Add(fmt.Sprintf("items[%d].unitPrice", i), "must be >= 0")
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateApplyVoucher(req *order.ApplyVoucherRequest) error {
	ve := &ValidationError{}
	if req.VoucherCode == "" {
		ve.Add("voucherCode", "is required")
	}
	if req.OrderTotal.IsNegative() {
		ve.Add("orderTotal", "must be >= 0")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}
