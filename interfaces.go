package storefront

import "github.com/craftloom/go-storefront/log"

// Storefront is the main SDK interface.
type Storefront interface {
	Account() *AccountService
	Payment() *PaymentService
	Orders() *OrderService
	Catalog() *CatalogService

	Sessions() *SessionStore
	Login(session Session)
	Logout()

	SetLogLevel(level log.Level)
}

var _ Storefront = (*Client)(nil)
