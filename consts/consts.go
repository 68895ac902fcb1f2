package consts

const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"

	BearerPrefix = "Bearer "
)

// Base URLs.
const (
	DefaultBackendBaseURL = "https://api-staging.craftloom.dev" // staging
	ProductionBackendURL  = "https://api.craftloom.com"         // prod
)

// Auth endpoint paths.
const (
	AuthRefreshPath = "/auth/refresh-token"
)

// Account endpoint paths.
const (
	AccountProfilePath = "/users/me"
)

// Payment endpoint paths.
const (
	// PaymentCreatePathFmt takes the order id as its single argument.
	PaymentCreatePathFmt = "/payment/create/%s"
)

// Guest order endpoint paths. These require no bearer token.
const (
	GuestOrdersPath       = "/guest/orders"
	GuestApplyVoucherPath = "/guest/orders/apply-voucher"
)

// Catalog endpoint paths.
const (
	// ProductStatisticsPathFmt takes the product id as its single argument.
	ProductStatisticsPathFmt = "/products/%s/statistics"
)
