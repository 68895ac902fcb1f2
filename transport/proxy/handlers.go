package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	storefront "github.com/craftloom/go-storefront"
	"github.com/craftloom/go-storefront/account"
	"github.com/craftloom/go-storefront/consts"
	"github.com/craftloom/go-storefront/payment"
)

const maxDiagnosticLen = 256

// Handlers contains the HTTP handlers that front the storefront backend.
//
// The guest endpoints are byte-for-byte passthroughs: status codes and bodies
// are forwarded unchanged so the browser sees exactly what the backend said.
type Handlers struct {
	client storefront.Storefront
	logger zerolog.Logger
}

// NewHandlers creates the proxy handlers.
func NewHandlers(client storefront.Storefront, logger zerolog.Logger) *Handlers {
	return &Handlers{
		client: client,
		logger: logger,
	}
}

// CreateGuestOrder proxies POST /guest/orders verbatim.
func (h *Handlers) CreateGuestOrder(c *gin.Context) {
	h.forwardGuest(c, consts.GuestOrdersPath)
}

// ApplyVoucher proxies POST /guest/orders/apply-voucher verbatim, non-2xx
// statuses and bodies included.
func (h *Handlers) ApplyVoucher(c *gin.Context) {
	h.forwardGuest(c, consts.GuestApplyVoucherPath)
}

func (h *Handlers) forwardGuest(c *gin.Context, endpointPath string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unable to read request body"})
		return
	}

	status, raw, err := h.client.Orders().Forward(c.Request.Context(), endpointPath, body)
	if err != nil {
		h.logger.Error().Err(err).Str("path", endpointPath).Msg("upstream unreachable")
		c.JSON(http.StatusBadGateway, gin.H{"message": "upstream unreachable"})
		return
	}
	if !json.Valid(raw) {
		h.logger.Error().Int("status", status).Str("path", endpointPath).Msg("upstream returned non-JSON response")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "upstream returned non-JSON response: " + truncate(string(raw), maxDiagnosticLen)})
		return
	}
	c.Data(status, consts.ContentTypeJSON, raw)
}

// SoldQuantity serves the sold counter for a product. Always 200: on any
// upstream failure the counter degrades to zero instead of breaking the page.
func (h *Handlers) SoldQuantity(c *gin.Context) {
	qty := h.client.Catalog().SoldQuantity(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"soldQuantity": qty})
}

// Profile forwards GET /users/me with the browser's bearer token.
func (h *Handlers) Profile(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}

	profile, err := h.client.Account().Profile(c.Request.Context(), storefront.WithAccessToken(token))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile forwards PATCH /users/me with the browser's bearer token.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}

	var req account.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	profile, err := h.client.Account().UpdateProfile(c.Request.Context(), &req, storefront.WithAccessToken(token))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// CreatePayment creates a payment session for an order with the browser's
// bearer token and returns the payload. Navigation is the browser's job.
func (h *Handlers) CreatePayment(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}

	var req payment.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	sess, err := h.client.Payment().CreateSession(c.Request.Context(), c.Param("id"), &req, storefront.WithAccessToken(token))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// writeError maps SDK failures onto proxy responses. Upstream statuses and
// bodies pass through unchanged; everything else becomes a diagnostic JSON.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var apiErr *storefront.APIError
	if errors.As(err, &apiErr) {
		c.Data(apiErr.StatusCode, consts.ContentTypeJSON, apiErr.Body)
		return
	}
	var fmtErr *storefront.UnexpectedFormatError
	if errors.As(err, &fmtErr) {
		h.logger.Error().Err(err).Msg("upstream returned malformed success response")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "upstream returned non-JSON response: " + truncate(string(fmtErr.Body), maxDiagnosticLen)})
		return
	}
	if storefront.IsNetworkError(err) {
		h.logger.Error().Err(err).Msg("upstream unreachable")
		c.JSON(http.StatusBadGateway, gin.H{"message": "upstream unreachable"})
		return
	}
	if storefront.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.logger.Error().Err(err).Msg("proxy request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader(consts.HeaderAuthorization)
	if !strings.HasPrefix(auth, consts.BearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(auth, consts.BearerPrefix)
	return token, token != ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
