package routes

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/handlers"
)

// RegisterRoutes branche le proxy de paiement. limiter protège la création de session.
func RegisterRoutes(r *gin.Engine, h *handlers.PaymentHandler, limiter gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.POST("/create-checkout-session", limiter, h.CreateCheckoutSession)
		api.GET("/checkout-session/:sessionId", h.GetCheckoutSession)
		api.GET("/checkout-session/:sessionId/ws", h.CheckoutEvents)

		// Webhook : corps brut requis pour la vérification de signature
		api.POST("/webhook", h.StripeWebhook)
	}
}
