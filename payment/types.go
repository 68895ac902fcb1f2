package payment

import (
	"github.com/shopspring/decimal"

	"github.com/craftloom/go-storefront/consts"
)

// CreateSessionRequest corresponds to "Create payment" (POST /payment/create/{orderID}).
type CreateSessionRequest struct {
	Provider  consts.PaymentProvider `json:"provider"`
	ReturnURL *string                `json:"returnUrl,omitempty"`
	CancelURL *string                `json:"cancelUrl,omitempty"`
}

// Session is the payment session returned by the backend.
//
// PaymentURL is empty for COD and bank-transfer orders: those have no hosted
// checkout page, so the UI renders the payload instead of navigating.
type Session struct {
	PaymentURL       string               `json:"paymentUrl"`
	OrderID          string               `json:"orderId,omitempty"`
	OrderNumber      string               `json:"orderNumber,omitempty"`
	IsCOD            bool                 `json:"isCod,omitempty"`
	IsBankTransfer   bool                 `json:"isBankTransfer,omitempty"`
	BankTransferInfo *BankTransferInfo    `json:"bankTransferInfo,omitempty"`
	Status           consts.PaymentStatus `json:"status,omitempty"`
}

// BankTransferInfo carries the manual-transfer details shown to the customer.
type BankTransferInfo struct {
	BankName      string          `json:"bankName"`
	AccountName   string          `json:"accountName"`
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	TransferNote  string          `json:"transferNote,omitempty"`
	QRCodeURL     string          `json:"qrCodeUrl,omitempty"`
}
