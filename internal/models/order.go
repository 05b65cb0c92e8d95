package models

// PricedOrder est dérivé du panier, jamais persisté. Tous les montants sont en centimes.
type PricedOrder struct {
	Lines    []CartLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
	Tax      int64      `json:"tax"`
	Shipping int64      `json:"shipping"`
	Total    int64      `json:"total"`
}

// CheckoutItem est une ligne envoyée à POST /api/create-checkout-session
type CheckoutItem struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// CheckoutRequest est le corps de POST /api/create-checkout-session (montants en dollars)
type CheckoutRequest struct {
	Cart     []CheckoutItem `json:"cart"`
	Subtotal float64        `json:"subtotal"`
	Tax      float64        `json:"tax"`
	Shipping float64        `json:"shipping"`
}

// CheckoutResponse est la réponse du proxy de paiement
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
}

// OrderSummaryItem est le résumé stocké dans les métadonnées de la session de paiement
type OrderSummaryItem struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CheckoutEvent est publié sur le canal checkout:<orderId> après un webhook
type CheckoutEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// OrderConfirmation alimente l'e-mail de confirmation après un paiement réussi
type OrderConfirmation struct {
	OrderID     string
	SessionID   string
	Items       []OrderSummaryItem
	AmountTotal int64 // centimes
	Currency    string
}
