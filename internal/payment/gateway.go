// Package payment parle au processeur de paiement (Stripe) : sessions de paiement et webhooks.
package payment

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
)

var ErrUnavailable = errors.New("processeur de paiement indisponible")

// Gateway est l'accès aux sessions de paiement du processeur
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// StripeGateway appelle l'API Stripe derrière un disjoncteur : après 5 échecs consécutifs
// les appels échouent immédiatement pendant 30 secondes.
type StripeGateway struct {
	breaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
}

// NewStripeGateway initialise la clé Stripe globale et le disjoncteur
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		breaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
			Name:    "stripe",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// une requête refusée par Stripe (4xx) ne dit rien de la santé du service
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("⚠️ Disjoncteur %s : %s → %s", name, from, to)
			},
		}),
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return g.execute(func() (*stripe.CheckoutSession, error) {
		return session.New(params)
	})
}

// GetCheckoutSession relit la session avec payment_intent, line_items et customer développés
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	params.AddExpand("line_items")
	params.AddExpand("customer")
	return g.execute(func() (*stripe.CheckoutSession, error) {
		return session.Get(id, params)
	})
}

func (g *StripeGateway) execute(call func() (*stripe.CheckoutSession, error)) (*stripe.CheckoutSession, error) {
	s, err := g.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return s, err
}

func isClientError(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 &&
		se.HTTPStatusCode != http.StatusTooManyRequests
}
