package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"

	"storefront/internal/checkout"
	"storefront/internal/models"
)

// Stripe refuse les valeurs de métadonnées de plus de 500 caractères
const maxMetadataValue = 500

// SessionOptions complète la requête du client pour créer la session
type SessionOptions struct {
	Origin   string
	Currency string
	ImageURL string
	Pricing  checkout.Pricing
}

// NewOrderID génère l'identifiant de commande stocké dans les métadonnées
func NewOrderID() string {
	return "order_" + uuid.NewString()
}

// BuildSessionParams transforme la requête validée en paramètres de session Stripe
func BuildSessionParams(req models.CheckoutRequest, opts SessionOptions, orderID string) (*stripe.CheckoutSessionParams, error) {
	items, err := checkout.LineItems(req, opts.ImageURL, opts.Pricing)
	if err != nil {
		return nil, err
	}

	summary, err := json.Marshal(checkout.Summary(req))
	if err != nil {
		return nil, fmt.Errorf("sérialisation résumé commande: %w", err)
	}
	itemsMeta := string(summary)
	if len(itemsMeta) > maxMetadataValue {
		itemsMeta = fmt.Sprintf("%d articles", len(req.Cart))
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Description != "" {
			product.Description = stripe.String(it.Description)
		}
		if len(it.Images) > 0 {
			product.Images = stripe.StringSlice(it.Images)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(opts.Currency),
				UnitAmount:  stripe.Int64(it.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(it.Quantity),
		})
	}

	origin := strings.TrimRight(opts.Origin, "/")
	return &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(origin + "/order-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(origin + "/cart"),
		Metadata: map[string]string{
			"orderId": orderID,
			"items":   itemsMeta,
		},
		// permet de relier un échec de paiement à la commande
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"orderId": orderID},
		},
	}, nil
}
