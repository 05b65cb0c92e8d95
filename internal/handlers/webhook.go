package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = int64(65536)

// ✅ Webhook du processeur de paiement
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	event, err := h.Verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Println("❌ Signature Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook Error: " + err.Error()})
		return
	}

	if _, err := h.Dispatcher.Dispatch(c.Request.Context(), event); err != nil {
		// une réponse non-2xx fait réessayer le processeur
		log.Printf("❌ Traitement événement %s échoué: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Traitement échoué"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
