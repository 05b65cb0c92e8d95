package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"storefront/internal/models"
)

var ErrEmptyCart = errors.New("le panier est vide")

// Poster est la partie du client HTTP utilisée pour parler au proxy de paiement
type Poster interface {
	Post(ctx context.Context, path string, body, dst any) error
	Get(ctx context.Context, path string, dst any) error
}

// Service envoie le panier chiffré au proxy de paiement
type Service struct {
	proxy   Poster
	pricing Pricing
}

func NewService(proxy Poster, pricing Pricing) *Service {
	return &Service{proxy: proxy, pricing: pricing}
}

// Quote chiffre les lignes sans rien envoyer
func (s *Service) Quote(lines []models.CartLine) models.PricedOrder {
	return s.pricing.Price(lines)
}

// CreateSession crée la session de paiement et renvoie son identifiant
func (s *Service) CreateSession(ctx context.Context, lines []models.CartLine) (string, models.PricedOrder, error) {
	order := s.pricing.Price(lines)
	if len(order.Lines) == 0 {
		return "", order, ErrEmptyCart
	}
	var res models.CheckoutResponse
	if err := s.proxy.Post(ctx, "/api/create-checkout-session", BuildRequest(order), &res); err != nil {
		return "", order, fmt.Errorf("création session de paiement: %w", err)
	}
	if res.SessionID == "" {
		return "", order, fmt.Errorf("création session de paiement: identifiant absent")
	}
	return res.SessionID, order, nil
}

// Session relit une session de paiement (page de confirmation de commande)
func (s *Service) Session(ctx context.Context, sessionID string) (map[string]any, error) {
	var res map[string]any
	if err := s.proxy.Get(ctx, "/api/checkout-session/"+url.PathEscape(sessionID), &res); err != nil {
		return nil, err
	}
	return res, nil
}
