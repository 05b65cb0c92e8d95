package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func line(id int, price float64, qty int) models.CartLine {
	return models.CartLine{ProductID: id, Title: "Treat", Brand: "Sugary", UnitPrice: price, ImageRef: "img.png", Quantity: qty}
}

func TestToCents(t *testing.T) {
	cases := map[float64]int64{
		0:      0,
		19.99:  1999,
		0.1:    10,
		1.005:  101,
		2.675:  268,
		99.999: 10000,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToCents(in), "%v", in)
	}
}

func TestTaxLabel(t *testing.T) {
	assert.Equal(t, "Tax (8.25%)", DefaultPricing.TaxLabel())
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		lines    []models.CartLine
		subtotal int64
		tax      int64
		shipping int64
	}{
		{"empty cart", nil, 0, 0, 0},
		{"under threshold pays shipping", []models.CartLine{line(1, 40, 1)}, 4000, 330, 599},
		{"over threshold ships free", []models.CartLine{line(1, 60, 1)}, 6000, 495, 0},
		{"exactly at threshold pays shipping", []models.CartLine{line(1, 25, 2)}, 5000, 413, 599},
		{"quantities multiply rounded unit price", []models.CartLine{line(1, 19.99, 3), line(2, 0.5, 1)}, 6047, 499, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := DefaultPricing.Price(tt.lines)
			assert.Equal(t, tt.subtotal, order.Subtotal)
			assert.Equal(t, tt.tax, order.Tax)
			assert.Equal(t, tt.shipping, order.Shipping)
			assert.Equal(t, tt.subtotal+tt.tax+tt.shipping, order.Total)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	order := DefaultPricing.Price([]models.CartLine{line(7, 19.99, 2)})
	req := BuildRequest(order)

	require.Len(t, req.Cart, 1)
	assert.Equal(t, models.CheckoutItem{ID: 7, Title: "Treat", Brand: "Sugary", Price: 19.99, Image: "img.png", Quantity: 2}, req.Cart[0])
	assert.InDelta(t, 39.98, req.Subtotal, 1e-9)
	assert.InDelta(t, 3.30, req.Tax, 1e-9)
	assert.InDelta(t, 5.99, req.Shipping, 1e-9)
}

func TestLineItems(t *testing.T) {
	req := models.CheckoutRequest{
		Cart:     []models.CheckoutItem{{ID: 1, Title: "Donut", Brand: "Sugary", Price: 40, Image: "donut.png", Quantity: 1}},
		Subtotal: 40,
		Tax:      3.30,
		Shipping: 5.99,
	}
	items, err := LineItems(req, "https://cdn.example.com/", DefaultPricing)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, LineItem{Name: "Donut", Description: "Sugary", Images: []string{"https://cdn.example.com/donut.png"}, UnitAmount: 4000, Quantity: 1}, items[0])
	assert.Equal(t, LineItem{Name: "Tax (8.25%)", UnitAmount: 330, Quantity: 1}, items[1])
	assert.Equal(t, LineItem{Name: "Shipping", UnitAmount: 599, Quantity: 1}, items[2])
}

func TestLineItems_OmitsZeroTaxAndShipping(t *testing.T) {
	req := models.CheckoutRequest{
		Cart:     []models.CheckoutItem{{ID: 1, Title: "Gift card", Price: 60, Quantity: 1}},
		Tax:      0.004,
		Shipping: 0,
	}
	items, err := LineItems(req, "", DefaultPricing)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Images)
}

func TestValidate(t *testing.T) {
	valid := models.CheckoutItem{ID: 1, Title: "Donut", Price: 1, Quantity: 1}
	tests := []struct {
		name string
		req  models.CheckoutRequest
	}{
		{"empty cart", models.CheckoutRequest{}},
		{"missing title", models.CheckoutRequest{Cart: []models.CheckoutItem{{ID: 1, Price: 1, Quantity: 1}}}},
		{"zero quantity", models.CheckoutRequest{Cart: []models.CheckoutItem{{ID: 1, Title: "x", Price: 1}}}},
		{"negative price", models.CheckoutRequest{Cart: []models.CheckoutItem{{ID: 1, Title: "x", Price: -1, Quantity: 1}}}},
		{"negative tax", models.CheckoutRequest{Cart: []models.CheckoutItem{valid}, Tax: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tt.req), ErrInvalidRequest)
		})
	}
	assert.NoError(t, Validate(models.CheckoutRequest{Cart: []models.CheckoutItem{valid}}))
}

func TestSummary(t *testing.T) {
	req := models.CheckoutRequest{Cart: []models.CheckoutItem{{ID: 3, Title: "Donut", Brand: "Sugary", Price: 2.5, Image: "d.png", Quantity: 4}}}
	assert.Equal(t, []models.OrderSummaryItem{{ID: 3, Title: "Donut", Quantity: 4, Price: 2.5}}, Summary(req))
}

type fakeProxy struct {
	path    string
	body    any
	res     models.CheckoutResponse
	err     error
	session map[string]any
}

func (f *fakeProxy) Post(ctx context.Context, path string, body, dst any) error {
	f.path, f.body = path, body
	if f.err != nil {
		return f.err
	}
	*dst.(*models.CheckoutResponse) = f.res
	return nil
}

func (f *fakeProxy) Get(ctx context.Context, path string, dst any) error {
	f.path = path
	*dst.(*map[string]any) = f.session
	return nil
}

func TestService_CreateSession(t *testing.T) {
	proxy := &fakeProxy{res: models.CheckoutResponse{SessionID: "cs_test_123"}}
	svc := NewService(proxy, DefaultPricing)

	id, order, err := svc.CreateSession(context.Background(), []models.CartLine{line(1, 60, 1)})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", id)
	assert.Equal(t, int64(6495), order.Total)
	assert.Equal(t, "/api/create-checkout-session", proxy.path)

	req := proxy.body.(models.CheckoutRequest)
	assert.Zero(t, req.Shipping)
	assert.InDelta(t, 4.95, req.Tax, 1e-9)
}

func TestService_CreateSession_EmptyCart(t *testing.T) {
	proxy := &fakeProxy{}
	_, _, err := NewService(proxy, DefaultPricing).CreateSession(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, proxy.path, "nothing is sent")
}

func TestService_CreateSession_Errors(t *testing.T) {
	boom := errors.New("proxy down")
	_, _, err := NewService(&fakeProxy{err: boom}, DefaultPricing).CreateSession(context.Background(), []models.CartLine{line(1, 1, 1)})
	assert.ErrorIs(t, err, boom)

	_, _, err = NewService(&fakeProxy{}, DefaultPricing).CreateSession(context.Background(), []models.CartLine{line(1, 1, 1)})
	assert.Error(t, err, "missing session id")
}

func TestService_Session(t *testing.T) {
	proxy := &fakeProxy{session: map[string]any{"id": "cs_1", "payment_status": "paid"}}
	s, err := NewService(proxy, DefaultPricing).Session(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", s["payment_status"])
	assert.Equal(t, "/api/checkout-session/cs_1", proxy.path)
}
