package proxy

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	storefront "github.com/craftloom/go-storefront"
)

// NewRouter sets up the Gin router for the storefront proxy.
func NewRouter(client storefront.Storefront, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	handlers := NewHandlers(client, logger)

	api := router.Group("/api")
	{
		api.POST("/guest/orders", handlers.CreateGuestOrder)
		api.POST("/guest/orders/apply-voucher", handlers.ApplyVoucher)
		api.GET("/products/:id/sold-quantity", handlers.SoldQuantity)
		api.GET("/users/me", handlers.Profile)
		api.PATCH("/users/me", handlers.UpdateProfile)
		api.POST("/orders/:id/payment", handlers.CreatePayment)
	}

	return router
}
