package order

import "github.com/shopspring/decimal"

// GuestOrderRequest corresponds to "Create guest order" (POST /guest/orders).
// The guest flow requires no bearer token.
type GuestOrderRequest struct {
	FullName        string  `json:"fullName"`
	PhoneNumber     string  `json:"phoneNumber"`
	Email           *string `json:"email,omitempty"`
	ShippingAddress string  `json:"shippingAddress"`
	Note            *string `json:"note,omitempty"`
	VoucherCode     *string `json:"voucherCode,omitempty"`
	PaymentMethod   string  `json:"paymentMethod,omitempty"`
	Items           []Item  `json:"items"`
}

type Item struct {
	ProductID       string          `json:"productId"`
	VariantID       *string         `json:"variantId,omitempty"`
	Quantity        int32           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	CustomDesignURL *string         `json:"customDesignUrl,omitempty"`
}

type GuestOrderResponse struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Total       decimal.Decimal `json:"total"`
	Discount    decimal.Decimal `json:"discount"`
	Status      string          `json:"status"`
}

// ApplyVoucherRequest corresponds to "Apply voucher" (POST /guest/orders/apply-voucher).
type ApplyVoucherRequest struct {
	VoucherCode string          `json:"voucherCode"`
	OrderTotal  decimal.Decimal `json:"orderTotal"`
	Items       []Item          `json:"items,omitempty"`
}

type VoucherResult struct {
	Valid          bool            `json:"valid"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
	Message        string          `json:"message,omitempty"`
}
