package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"

	"storefront/internal/models"
)

// EventLog garantit qu'un événement n'est traité qu'une fois (cache.Redis)
type EventLog interface {
	MarkEventProcessed(eventID string) (bool, error)
}

// Publisher diffuse les changements d'état d'une session (cache.Redis)
type Publisher interface {
	PublishCheckoutEvent(orderID string, payload []byte) error
}

// Mailer envoie la confirmation de commande (utils.Mailer)
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to string, order models.OrderConfirmation) error
}

// Fulfiller traite les paiements confirmés ou échoués. Chaque dépendance est optionnelle.
type Fulfiller struct {
	events    EventLog
	publisher Publisher
	mailer    Mailer
}

func NewFulfiller(events EventLog, publisher Publisher, mailer Mailer) *Fulfiller {
	return &Fulfiller{events: events, publisher: publisher, mailer: mailer}
}

func (f *Fulfiller) CheckoutCompleted(ctx context.Context, eventID string, s stripe.CheckoutSession) error {
	first, err := f.firstDelivery(eventID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("🔁 Événement %s déjà traité, on ignore.", eventID)
		return nil
	}

	orderID := s.Metadata["orderId"]
	log.Printf("💳 Paiement réussi pour la commande : %s (session %s)", orderID, s.ID)

	f.publish(models.CheckoutEvent{
		Type:      EventCheckoutCompleted,
		SessionID: s.ID,
		OrderID:   orderID,
		Status:    "completed",
	})

	email := ""
	if s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	if f.mailer == nil || email == "" {
		return nil
	}

	var items []models.OrderSummaryItem
	if raw := s.Metadata["items"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			log.Printf("⚠️ Résumé de commande illisible pour %s: %v", orderID, err)
		}
	}
	confirmation := models.OrderConfirmation{
		OrderID:     orderID,
		SessionID:   s.ID,
		Items:       items,
		AmountTotal: s.AmountTotal,
		Currency:    string(s.Currency),
	}

	// l'envoi ne doit pas retarder l'accusé de réception du webhook
	go func() {
		if err := f.mailer.SendOrderConfirmation(context.Background(), email, confirmation); err != nil {
			log.Println("❌ Erreur envoi e-mail confirmation :", err)
		} else {
			log.Println("📧 E-mail de confirmation envoyé à", email)
		}
	}()
	return nil
}

func (f *Fulfiller) PaymentFailed(ctx context.Context, eventID string, p FailedPayment) error {
	first, err := f.firstDelivery(eventID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("🔁 Événement %s déjà traité, on ignore.", eventID)
		return nil
	}

	msg := ""
	if p.LastPaymentError != nil {
		msg = p.LastPaymentError.Message
	}
	log.Printf("⚠️ Paiement échoué : %s (%s)", p.ID, msg)

	if orderID := p.Metadata["orderId"]; orderID != "" {
		f.publish(models.CheckoutEvent{
			Type:    EventPaymentFailed,
			OrderID: orderID,
			Status:  "failed",
			Message: msg,
		})
	}
	return nil
}

func (f *Fulfiller) firstDelivery(eventID string) (bool, error) {
	if f.events == nil || eventID == "" {
		return true, nil
	}
	first, err := f.events.MarkEventProcessed(eventID)
	if err != nil {
		return false, fmt.Errorf("idempotence webhook: %w", err)
	}
	return first, nil
}

func (f *Fulfiller) publish(ev models.CheckoutEvent) {
	if f.publisher == nil || ev.OrderID == "" {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Sérialisation événement: %v", err)
		return
	}
	if err := f.publisher.PublishCheckoutEvent(ev.OrderID, payload); err != nil {
		log.Printf("⚠️ Diffusion événement %s échouée: %v", ev.OrderID, err)
	}
}
