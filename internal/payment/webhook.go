package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

var ErrInvalidSignature = errors.New("signature webhook invalide")

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// Verifier vérifie l'en-tête stripe-signature avec le secret du webhook (distinct de la clé API)
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify renvoie l'événement seulement si la signature est valide
func (v *Verifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET non configuré", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		// le processeur peut être configuré sur une autre version d'API que la bibliothèque
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// FailedPayment est la partie du PaymentIntent utile en cas d'échec
type FailedPayment struct {
	ID               string            `json:"id"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// EventHandler réagit aux événements connus
type EventHandler interface {
	CheckoutCompleted(ctx context.Context, eventID string, s stripe.CheckoutSession) error
	PaymentFailed(ctx context.Context, eventID string, p FailedPayment) error
}

// Dispatcher aiguille les événements vérifiés par type. Les types inconnus sont ignorés :
// le processeur peut en ajouter de nouveaux à tout moment.
type Dispatcher struct {
	handler EventHandler
}

func NewDispatcher(h EventHandler) *Dispatcher {
	return &Dispatcher{handler: h}
}

// Dispatch renvoie handled=false pour un type d'événement non géré
func (d *Dispatcher) Dispatch(ctx context.Context, event stripe.Event) (handled bool, err error) {
	log.Printf("📥 Événement Stripe reçu : %s (%s)", event.Type, event.ID)

	switch event.Type {
	case EventCheckoutCompleted:
		if event.Data == nil {
			return true, errNoData(event)
		}
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return true, fmt.Errorf("décodage CheckoutSession: %w", err)
		}
		return true, d.handler.CheckoutCompleted(ctx, event.ID, s)

	case EventPaymentFailed:
		if event.Data == nil {
			return true, errNoData(event)
		}
		var p FailedPayment
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return true, fmt.Errorf("décodage PaymentIntent: %w", err)
		}
		return true, d.handler.PaymentFailed(ctx, event.ID, p)

	default:
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return false, nil
	}
}

func errNoData(event stripe.Event) error {
	return fmt.Errorf("événement %s (%s) sans données", event.ID, event.Type)
}
