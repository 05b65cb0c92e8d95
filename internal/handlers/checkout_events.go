package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"storefront/internal/models"
)

const checkoutPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// les origines sont déjà filtrées par le middleware CORS
		return true
	},
}

// CheckoutEvents relaie en temps réel le statut de paiement d'une session.
// La connexion se ferme après un statut final (completed ou failed).
func (h *PaymentHandler) CheckoutEvents(c *gin.Context) {
	if h.Subscriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Notifications temps réel désactivées"})
		return
	}

	sessionID := c.Param("sessionId")
	s, err := h.Gateway.GetCheckoutSession(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("❌ Lecture session %s: %v", sessionID, err)
		c.JSON(gatewayStatus(err), gin.H{"message": err.Error()})
		return
	}
	orderID := s.Metadata["orderId"]
	if orderID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session sans commande associée"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.Subscriber.SubscribeCheckout(ctx, orderID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	// lecture uniquement pour détecter la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(models.CheckoutEvent{
		Type:      "connected",
		SessionID: sessionID,
		OrderID:   orderID,
		Status:    string(s.Status),
	}); err != nil {
		log.Printf("❌ Erreur envoi WebSocket: %v", err)
		return
	}

	ticker := time.NewTicker(checkoutPingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.CheckoutEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("⚠️ Notification illisible sur %s: %v", msg.Channel, err)
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
			if ev.Status == "completed" || ev.Status == "failed" {
				if err := conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.Status)); err != nil {
					log.Printf("⚠️ Fermeture WebSocket %s: %v", orderID, err)
				}
				return
			}
		case <-ticker.C:
			// Ping pour garder la connexion active
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
