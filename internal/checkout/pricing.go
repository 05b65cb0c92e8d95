// Package checkout transforme le panier en commande chiffrée et en lignes pour le processeur de paiement.
package checkout

import (
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// Pricing regroupe les règles de prix. Les montants sont en centimes.
type Pricing struct {
	TaxRate          decimal.Decimal
	FreeShippingOver int64
	ShippingFee      int64
}

// DefaultPricing : TVA 8.25 %, livraison 5.99 offerte au-delà de 50.00
var DefaultPricing = Pricing{
	TaxRate:          decimal.RequireFromString("0.0825"),
	FreeShippingOver: 5000,
	ShippingFee:      599,
}

// ToCents arrondit un montant en dollars au centime le plus proche (une seule fois)
func ToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

// FromCents convertit des centimes en dollars
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// TaxLabel est le libellé de la ligne de taxe, ex. "Tax (8.25%)"
func (p Pricing) TaxLabel() string {
	return "Tax (" + p.TaxRate.Shift(2).String() + "%)"
}

// Price calcule sous-total, taxe, livraison et total. Chaque prix unitaire est arrondi
// au centime avant multiplication, la taxe est arrondie une fois sur le sous-total.
func (p Pricing) Price(lines []models.CartLine) models.PricedOrder {
	order := models.PricedOrder{Lines: append([]models.CartLine(nil), lines...)}
	for _, l := range lines {
		order.Subtotal += ToCents(l.UnitPrice) * int64(l.Quantity)
	}
	order.Tax = decimal.NewFromInt(order.Subtotal).Mul(p.TaxRate).Round(0).IntPart()
	order.Shipping = p.shipping(order.Subtotal, len(lines))
	order.Total = order.Subtotal + order.Tax + order.Shipping
	return order
}

func (p Pricing) shipping(subtotal int64, lineCount int) int64 {
	if lineCount == 0 || subtotal > p.FreeShippingOver {
		return 0
	}
	return p.ShippingFee
}

// BuildRequest prépare le corps de POST /api/create-checkout-session
func BuildRequest(order models.PricedOrder) models.CheckoutRequest {
	req := models.CheckoutRequest{
		Cart:     make([]models.CheckoutItem, 0, len(order.Lines)),
		Subtotal: FromCents(order.Subtotal),
		Tax:      FromCents(order.Tax),
		Shipping: FromCents(order.Shipping),
	}
	for _, l := range order.Lines {
		req.Cart = append(req.Cart, models.CheckoutItem{
			ID:       l.ProductID,
			Title:    l.Title,
			Brand:    l.Brand,
			Price:    FromCents(ToCents(l.UnitPrice)),
			Image:    l.ImageRef,
			Quantity: l.Quantity,
		})
	}
	return req
}
