package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/craftloom/go-storefront/account"
	"github.com/craftloom/go-storefront/consts"
	"github.com/craftloom/go-storefront/order"
	"github.com/craftloom/go-storefront/payment"
)

func TestProfileRefreshesExpiredTokenOnce(t *testing.T) {
	var refreshHits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me":
			if r.Header.Get("Authorization") == "Bearer fresh" {
				_, _ = w.Write([]byte(`{"id":"u1","email":"linh@example.com","fullName":"Linh Tran"}`))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
		case "/auth/refresh-token":
			atomic.AddInt32(&refreshHits, 1)
			var req struct {
				RefreshToken string `json:"refreshToken"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken != "r1" {
				w.WriteHeader(http.StatusBadRequest)
				t.Errorf("unexpected refresh payload: %+v err=%v", req, err)
				return
			}
			_, _ = w.Write([]byte(`{"accessToken":"fresh","refreshToken":"r2"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.Login(Session{AccessToken: "stale", RefreshToken: "r1"})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			profile, err := client.Account().Profile(context.Background())
			if err == nil && profile.Email != "linh@example.com" {
				err = errors.New("wrong profile " + profile.Email)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&refreshHits); got != 1 {
		t.Fatalf("expected exactly one refresh request, got %d", got)
	}
	sess, ok := client.Sessions().Get()
	if !ok || sess.AccessToken != "fresh" {
		t.Fatalf("client session not replaced after refresh: %+v", sess)
	}
}

func TestProfileWithoutSessionFailsFast(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Account().Profile(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %T (%v)", err, err)
	}
	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Fatalf("expected zero network calls, got %d", got)
	}
}

func TestWithAccessTokenBypassesSessionStore(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer external" {
			w.WriteHeader(http.StatusUnauthorized)
			t.Errorf("expected the externally supplied bearer, got %q", got)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"linh@example.com","fullName":"Linh Tran"}`))
	}))
	defer ts.Close()

	// No session at all: the externally supplied token must carry the call.
	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	profile, err := client.Account().Profile(context.Background(), WithAccessToken("external"))
	if err != nil {
		t.Fatalf("profile with external token: %v", err)
	}
	if profile.ID != "u1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestApplyVoucherSurfacesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid voucher"}`))
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Orders().ApplyVoucher(context.Background(), &order.ApplyVoucherRequest{
		VoucherCode: "BADCODE",
		OrderTotal:  decimal.NewFromInt(100000),
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T (%v)", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message() != "Invalid voucher" {
		t.Fatalf("message = %q, want %q", apiErr.Message(), "Invalid voucher")
	}
}

func TestForwardReturnsUpstreamVerbatim(t *testing.T) {
	upstreamBody := `{"message":"Invalid voucher"}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != consts.GuestApplyVoucherPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(upstreamBody))
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	status, raw, err := client.Orders().Forward(context.Background(), consts.GuestApplyVoucherPath, []byte(`{"voucherCode":"BADCODE"}`))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if string(raw) != upstreamBody {
		t.Fatalf("body = %q, want it unchanged", raw)
	}
}

func TestGuestOrderValidation(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Orders().CreateGuestOrder(context.Background(), &order.GuestOrderRequest{})
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	fields := map[string]bool{}
	for _, fe := range ve.Fields {
		fields[fe.Field] = true
	}
	for _, want := range []string{"fullName", "phoneNumber", "shippingAddress", "items"} {
		if !fields[want] {
			t.Fatalf("missing validation for %q, got %+v", want, ve.Fields)
		}
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Payment().CreateSession(context.Background(), "order-1", &payment.CreateSessionRequest{})
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0].Field != "provider" {
		t.Fatalf("unexpected validation fields: %+v", ve.Fields)
	}
}

func TestDryRunSkipsHTTPCall(t *testing.T) {
	var hitCount int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hitCount, 1)
		_, _ = w.Write([]byte(`{"orderId":"o1"}`))
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var (
		called    bool
		gotMethod string
		gotURL    string
		gotReq    *order.GuestOrderRequest
	)

	req := &order.GuestOrderRequest{
		FullName:        "Linh Tran",
		PhoneNumber:     "+84901234567",
		ShippingAddress: "12 Hang Bac",
		Items: []order.Item{
			{ProductID: "mug-classic", Quantity: 1, UnitPrice: decimal.NewFromInt(150000)},
		},
	}

	_, err = client.Orders().CreateGuestOrder(context.Background(), req, DryRun(func(method string, url string, payload any) {
		called = true
		gotMethod = method
		gotURL = url
		if v, ok := payload.(*order.GuestOrderRequest); ok {
			gotReq = v
		}
	}))
	if err != nil {
		t.Fatalf("guest order dry run: %v", err)
	}

	if !called {
		t.Fatalf("dry run handler was not called")
	}
	if gotMethod != "POST" {
		t.Fatalf("unexpected method: %q", gotMethod)
	}
	if gotURL != ts.URL+consts.GuestOrdersPath {
		t.Fatalf("unexpected url: %q", gotURL)
	}
	if gotReq == nil || gotReq.FullName != "Linh Tran" {
		t.Fatalf("unexpected payload: %+v", gotReq)
	}
	if atomic.LoadInt32(&hitCount) != 0 {
		t.Fatalf("expected no HTTP calls, got %d", hitCount)
	}
}

func TestSoldQuantityDegradesToZero(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if got := client.Catalog().SoldQuantity(context.Background(), "mug-classic"); got != 0 {
		t.Fatalf("expected sold quantity to degrade to 0, got %d", got)
	}
}

func TestSoldQuantityHappyPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/mug-classic/statistics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"productId":"mug-classic","soldQuantity":42}`))
	}))
	defer ts.Close()

	client, err := NewClient(WithBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if got := client.Catalog().SoldQuantity(context.Background(), "mug-classic"); got != 42 {
		t.Fatalf("sold quantity = %d, want 42", got)
	}
}

func TestUpdateProfileRequiresAField(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.Login(Session{AccessToken: "a", RefreshToken: "r"})

	_, err = client.Account().UpdateProfile(context.Background(), &account.UpdateProfileRequest{})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
}
