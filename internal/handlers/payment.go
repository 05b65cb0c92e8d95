package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v83"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/payment"
)

// WebhookVerifier vérifie la signature d'un webhook (payment.Verifier)
type WebhookVerifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

// EventDispatcher traite un événement vérifié (payment.Dispatcher)
type EventDispatcher interface {
	Dispatch(ctx context.Context, event stripe.Event) (bool, error)
}

// CheckoutSubscriber donne accès aux notifications d'une commande (cache.Redis)
type CheckoutSubscriber interface {
	SubscribeCheckout(ctx context.Context, orderID string) *redis.PubSub
}

// PaymentHandler regroupe les routes du proxy de paiement
type PaymentHandler struct {
	Gateway    payment.Gateway
	Verifier   WebhookVerifier
	Dispatcher EventDispatcher
	Subscriber CheckoutSubscriber // nil sans Redis
	Options    payment.SessionOptions
}

// ✅ Crée une session de paiement hébergée par le processeur
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}
	if err := checkout.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := h.Options
	opts.Origin = requestOrigin(c)

	orderID := payment.NewOrderID()
	params, err := payment.BuildSessionParams(req, opts, orderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.Gateway.CreateCheckoutSession(c.Request.Context(), params)
	if err != nil {
		log.Println("❌ Erreur Stripe:", err)
		c.JSON(gatewayStatus(err), gin.H{"message": err.Error()})
		return
	}

	log.Printf("💳 Session de paiement créée : %s (commande %s, %d articles)", s.ID, orderID, len(req.Cart))
	c.JSON(http.StatusOK, models.CheckoutResponse{SessionID: s.ID})
}

// GetCheckoutSession renvoie la session avec paiement, lignes et client développés
func (h *PaymentHandler) GetCheckoutSession(c *gin.Context) {
	id := c.Param("sessionId")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId manquant"})
		return
	}

	s, err := h.Gateway.GetCheckoutSession(c.Request.Context(), id)
	if err != nil {
		log.Printf("❌ Lecture session %s: %v", id, err)
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.JSON(gatewayStatus(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// requestOrigin est l'origine du navigateur, sinon l'hôte appelé
func requestOrigin(c *gin.Context) string {
	if origin := c.GetHeader("Origin"); origin != "" {
		return origin
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func gatewayStatus(err error) int {
	if errors.Is(err, payment.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
