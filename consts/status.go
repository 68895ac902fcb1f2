package consts

// PaymentProvider identifies the hosted-checkout provider requested for an order.
type PaymentProvider string

const (
	ProviderPayOS        PaymentProvider = "payos"
	ProviderVNPay        PaymentProvider = "vnpay"
	ProviderCOD          PaymentProvider = "cod"
	ProviderBankTransfer PaymentProvider = "bank_transfer"
)

// PaymentStatus is the status of a payment session as reported by the backend.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
)
