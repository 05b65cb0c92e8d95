package checkout

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
)

var ErrInvalidRequest = errors.New("requête de paiement invalide")

// LineItem est une ligne de la session de paiement, montant unitaire en centimes
type LineItem struct {
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Quantity    int64
}

// LineItems produit une ligne par article, plus une ligne de taxe et une ligne de livraison
// uniquement si leur montant arrondi au centime est strictement positif.
func LineItems(req models.CheckoutRequest, imageURL string, pricing Pricing) ([]LineItem, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(req.Cart)+2)
	for _, it := range req.Cart {
		li := LineItem{
			Name:        it.Title,
			Description: it.Brand,
			UnitAmount:  ToCents(it.Price),
			Quantity:    int64(it.Quantity),
		}
		if it.Image != "" {
			li.Images = []string{imageURL + it.Image}
		}
		items = append(items, li)
	}

	if tax := ToCents(req.Tax); tax > 0 {
		items = append(items, LineItem{Name: pricing.TaxLabel(), UnitAmount: tax, Quantity: 1})
	}
	if shipping := ToCents(req.Shipping); shipping > 0 {
		items = append(items, LineItem{Name: "Shipping", UnitAmount: shipping, Quantity: 1})
	}
	return items, nil
}

// Validate vérifie le corps reçu par le proxy avant tout appel au processeur
func Validate(req models.CheckoutRequest) error {
	if len(req.Cart) == 0 {
		return fmt.Errorf("%w: panier vide", ErrInvalidRequest)
	}
	for _, it := range req.Cart {
		if strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("%w: article %d sans titre", ErrInvalidRequest, it.ID)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantité %d pour l'article %d", ErrInvalidRequest, it.Quantity, it.ID)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: prix négatif pour l'article %d", ErrInvalidRequest, it.ID)
		}
	}
	if req.Tax < 0 || req.Shipping < 0 {
		return fmt.Errorf("%w: montants négatifs", ErrInvalidRequest)
	}
	return nil
}

// Summary est le résumé des articles stocké dans les métadonnées de la session
func Summary(req models.CheckoutRequest) []models.OrderSummaryItem {
	out := make([]models.OrderSummaryItem, 0, len(req.Cart))
	for _, it := range req.Cart {
		out = append(out, models.OrderSummaryItem{ID: it.ID, Title: it.Title, Quantity: it.Quantity, Price: it.Price})
	}
	return out
}
