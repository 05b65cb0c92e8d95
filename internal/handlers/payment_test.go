package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"storefront/internal/cache"
	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/payment"
)

const testWebhookSecret = "whsec_test_secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	created   *stripe.CheckoutSessionParams
	createErr error
	sessions  map[string]*stripe.CheckoutSession
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = params
	return &stripe.CheckoutSession{ID: "cs_test_1", Metadata: params.Metadata}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if s, ok := g.sessions[id]; ok {
		return s, nil
	}
	return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout.session: " + id}
}

type countingPublisher struct {
	payloads map[string][][]byte
}

func (p *countingPublisher) PublishCheckoutEvent(orderID string, payload []byte) error {
	if p.payloads == nil {
		p.payloads = map[string][][]byte{}
	}
	p.payloads[orderID] = append(p.payloads[orderID], payload)
	return nil
}

func newTestRouter(h *PaymentHandler) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.POST("/create-checkout-session", h.CreateCheckoutSession)
	api.GET("/checkout-session/:sessionId", h.GetCheckoutSession)
	api.GET("/checkout-session/:sessionId/ws", h.CheckoutEvents)
	api.POST("/webhook", h.StripeWebhook)
	return r
}

func newHandler(gw payment.Gateway, pub payment.Publisher) *PaymentHandler {
	return &PaymentHandler{
		Gateway:    gw,
		Verifier:   payment.NewVerifier(testWebhookSecret),
		Dispatcher: payment.NewDispatcher(payment.NewFulfiller(nil, pub, nil)),
		Options: payment.SessionOptions{
			Currency: "usd",
			ImageURL: "https://cdn.example.com/",
			Pricing:  checkout.DefaultPricing,
		},
	}
}

func postJSON(r http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCheckoutSession(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestRouter(newHandler(gw, nil))

	body := models.CheckoutRequest{
		Cart:     []models.CheckoutItem{{ID: 1, Title: "Donut", Brand: "Sugary", Price: 40, Image: "d.png", Quantity: 1}},
		Subtotal: 40, Tax: 3.3, Shipping: 5.99,
	}
	w := postJSON(r, "/api/create-checkout-session", body, map[string]string{"Origin": "https://shop.example.com"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "cs_test_1", res.SessionID)

	require.NotNil(t, gw.created)
	assert.Equal(t, "https://shop.example.com/cart", *gw.created.CancelURL)
	assert.Len(t, gw.created.LineItems, 3)
	assert.True(t, strings.HasPrefix(gw.created.Metadata["orderId"], "order_"))
}

func TestCreateCheckoutSession_Invalid(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestRouter(newHandler(gw, nil))

	w := postJSON(r, "/api/create-checkout-session", models.CheckoutRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, gw.created)

	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader("{"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCheckoutSession_GatewayErrors(t *testing.T) {
	body := models.CheckoutRequest{Cart: []models.CheckoutItem{{ID: 1, Title: "Donut", Price: 1, Quantity: 1}}}

	r := newTestRouter(newHandler(&fakeGateway{createErr: errors.New("stripe exploded")}, nil))
	w := postJSON(r, "/api/create-checkout-session", body, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"stripe exploded"}`, w.Body.String())

	r = newTestRouter(newHandler(&fakeGateway{createErr: errors.Join(payment.ErrUnavailable, errors.New("open"))}, nil))
	w = postJSON(r, "/api/create-checkout-session", body, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetCheckoutSession(t *testing.T) {
	gw := &fakeGateway{sessions: map[string]*stripe.CheckoutSession{
		"cs_1": {ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid, AmountTotal: 4929},
	}}
	r := newTestRouter(newHandler(gw, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkout-session/cs_1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var s map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "paid", s["payment_status"])
	assert.EqualValues(t, 4929, s["amount_total"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkout-session/cs_missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func webhookRequest(body string, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", signature)
	return req
}

func signed(body string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func event(id, typ, object string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"api_version":"2019-01-01","data":{"object":%s}}`, id, typ, object)
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	pub := &countingPublisher{}
	r := newTestRouter(newHandler(&fakeGateway{}, pub))

	body := event("evt_1", payment.EventCheckoutCompleted, `{"id":"cs_1","metadata":{"orderId":"order_1"}}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(body, "t=123,v1=bad"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, pub.payloads, "event is not processed")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(body, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, pub.payloads)
}

func TestStripeWebhook_CheckoutCompleted(t *testing.T) {
	pub := &countingPublisher{}
	r := newTestRouter(newHandler(&fakeGateway{}, pub))

	body := event("evt_1", payment.EventCheckoutCompleted, `{"id":"cs_1","metadata":{"orderId":"order_1"}}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(body, signed(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	require.Len(t, pub.payloads["order_1"], 1)

	var ev models.CheckoutEvent
	require.NoError(t, json.Unmarshal(pub.payloads["order_1"][0], &ev))
	assert.Equal(t, "completed", ev.Status)
	assert.Equal(t, "cs_1", ev.SessionID)
}

func TestStripeWebhook_UnknownTypeAcknowledged(t *testing.T) {
	pub := &countingPublisher{}
	r := newTestRouter(newHandler(&fakeGateway{}, pub))

	body := event("evt_2", "customer.subscription.created", `{"id":"sub_1","metadata":{"orderId":"order_1"}}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(body, signed(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Empty(t, pub.payloads)
}

func TestStripeWebhook_UnknownTypeWithoutDataAcknowledged(t *testing.T) {
	r := newTestRouter(newHandler(&fakeGateway{}, nil))

	body := `{"id":"evt_9","object":"event","type":"account.application.deauthorized","api_version":"2019-01-01"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(body, signed(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

type failingLog struct{}

func (failingLog) MarkEventProcessed(string) (bool, error) { return false, errors.New("redis down") }

func TestStripeWebhook_ProcessingErrorAsksForRetry(t *testing.T) {
	h := newHandler(&fakeGateway{}, nil)
	h.Dispatcher = payment.NewDispatcher(payment.NewFulfiller(failingLog{}, nil, nil))
	r := newTestRouter(h)

	body := event("evt_3", payment.EventCheckoutCompleted, `{"id":"cs_1"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, webhookRequest(body, signed(body)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCheckoutEvents_Disabled(t *testing.T) {
	r := newTestRouter(newHandler(&fakeGateway{}, nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkout-session/cs_1/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckoutEvents_RelaysPaymentResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	rdb := &cache.Redis{Client: client}

	gw := &fakeGateway{sessions: map[string]*stripe.CheckoutSession{
		"cs_1": {ID: "cs_1", Status: stripe.CheckoutSessionStatusOpen, Metadata: map[string]string{"orderId": "order_1"}},
	}}
	h := newHandler(gw, rdb)
	h.Subscriber = rdb
	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/checkout-session/cs_1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello models.CheckoutEvent
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)
	assert.Equal(t, "order_1", hello.OrderID)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("checkout:order_1")["checkout:order_1"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	// livraison du webhook : le Fulfiller publie sur checkout:order_1
	body := event("evt_1", payment.EventCheckoutCompleted, `{"id":"cs_1","metadata":{"orderId":"order_1"}}`)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, webhookRequest(body, signed(body)))
	require.Equal(t, http.StatusOK, w.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.CheckoutEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "completed", ev.Status)
	assert.Equal(t, "cs_1", ev.SessionID)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestCheckoutEvents_ClientGoneReleasesSubscription(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	rdb := &cache.Redis{Client: client}

	gw := &fakeGateway{sessions: map[string]*stripe.CheckoutSession{
		"cs_1": {ID: "cs_1", Metadata: map[string]string{"orderId": "order_2"}},
	}}
	h := newHandler(gw, rdb)
	h.Subscriber = rdb
	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/checkout-session/cs_1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var hello models.CheckoutEvent
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, 1, mr.PubSubNumSub("checkout:order_2")["checkout:order_2"])
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("checkout:order_2")["checkout:order_2"] == 0
	}, 2*time.Second, 10*time.Millisecond, "the handler returns and unsubscribes")
}
