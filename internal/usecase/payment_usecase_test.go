package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/DRSN-tech/visual-commerce/pkg/webhook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrderID       = "6f1c2a8e-3b7d-4c1e-9a55-0c2f8d9e7b10"
	testWebhookSecret = "whsec_test"
	testIntentID      = "pi_3Nabc"
)

type paymentFixture struct {
	orders   *fakeOrderRepo
	outbox   *fakeOutboxRepo
	events   *fakeWebhookEvents
	tx       *fakeTxManager
	provider *fakePaymentProvider
	uc       *PaymentUseCase
}

func newPaymentFixture(orders ...*domain.Order) *paymentFixture {
	f := &paymentFixture{
		orders:   newFakeOrderRepo(orders...),
		outbox:   &fakeOutboxRepo{},
		events:   newFakeWebhookEvents(),
		tx:       &fakeTxManager{},
		provider: &fakePaymentProvider{},
	}
	f.uc = NewPaymentUC(f.orders, f.outbox, f.events, f.tx, f.provider, PaymentConfig{
		WebhookSecret:    testWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
		DefaultCurrency:  "usd",
	}, nil, logger.NewNop())
	return f
}

func newOrder(total string, currency string) *domain.Order {
	return &domain.Order{
		ID:            testOrderID,
		TotalAmount:   decimal.RequireFromString(total),
		Currency:      currency,
		PaymentStatus: domain.PaymentStatusUnset,
		Status:        domain.OrderStatusPending,
	}
}

func orderWithIntent(total string) *domain.Order {
	o := newOrder(total, "usd")
	id := testIntentID
	o.PaymentIntentID = &id
	o.PaymentStatus = domain.PaymentStatusPending
	return o
}

func TestCreatePaymentIntent_Success(t *testing.T) {
	f := newPaymentFixture(newOrder("5000", "usd"))

	res, err := f.uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, ""))
	require.NoError(t, err)

	require.Len(t, f.provider.requests, 1)
	req := f.provider.requests[0]
	assert.Equal(t, int64(5000), req.Amount)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, testOrderID, req.OrderID)
	assert.Equal(t, "order-"+testOrderID+"-payment-intent", req.IdempotencyKey)

	assert.Equal(t, testOrderID, res.OrderID)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, res.PaymentIntentID, *f.orders.orders[testOrderID].PaymentIntentID)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, EventTypePaymentIntentCreated, f.outbox.events[0].EventType)
	assert.Equal(t, testOrderID, f.outbox.events[0].AggregateID)
	assert.Equal(t, 1, f.tx.calls)
}

func TestCreatePaymentIntent_SecondCallConflicts(t *testing.T) {
	f := newPaymentFixture(newOrder("5000", "usd"))
	ctx := context.Background()

	first, err := f.uc.CreatePaymentIntent(ctx, NewCreatePaymentIntentReq(testOrderID, ""))
	require.NoError(t, err)
	stored := *f.orders.orders[testOrderID].PaymentIntentID

	_, err = f.uc.CreatePaymentIntent(ctx, NewCreatePaymentIntentReq(testOrderID, ""))

	assert.ErrorIs(t, err, e.ErrPaymentIntentExists)
	assert.Equal(t, first.PaymentIntentID, stored)
	assert.Equal(t, stored, *f.orders.orders[testOrderID].PaymentIntentID)
	assert.Len(t, f.provider.requests, 1)
}

func TestCreatePaymentIntent_AmountComesFromOrder(t *testing.T) {
	tests := []struct {
		total string
		want  int64
	}{
		{"5000", 5000},
		{"1999.4", 1999},
		{"1999.5", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			f := newPaymentFixture(newOrder(tt.total, "usd"))

			_, err := f.uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, ""))
			require.NoError(t, err)

			assert.Equal(t, tt.want, f.provider.requests[0].Amount)
		})
	}
}

func TestCreatePaymentIntent_Currency(t *testing.T) {
	tests := []struct {
		name          string
		orderCurrency string
		requested     string
		want          string
	}{
		{"order currency wins", "EUR", "gbp", "eur"},
		{"request override when order has none", "", "GBP", "gbp"},
		{"default when none given", "", "", "usd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(newOrder("100", tt.orderCurrency))

			_, err := f.uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, tt.requested))
			require.NoError(t, err)

			assert.Equal(t, tt.want, f.provider.requests[0].Currency)
		})
	}
}

func TestCreatePaymentIntent_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		order *domain.Order
		req   *CreatePaymentIntentReq
		want  error
	}{
		{"missing order id", newOrder("100", "usd"), NewCreatePaymentIntentReq("  ", ""), e.ErrOrderIDRequired},
		{"malformed order id", newOrder("100", "usd"), NewCreatePaymentIntentReq("order-1", ""), e.ErrInvalidOrderID},
		{"unknown order", newOrder("100", "usd"), NewCreatePaymentIntentReq("00000000-0000-0000-0000-000000000001", ""), e.ErrOrderNotFound},
		{"zero total", newOrder("0", "usd"), NewCreatePaymentIntentReq(testOrderID, ""), e.ErrInvalidOrderTotal},
		{"negative total", newOrder("-10", "usd"), NewCreatePaymentIntentReq(testOrderID, ""), e.ErrInvalidOrderTotal},
		{"total rounds to zero", newOrder("0.4", "usd"), NewCreatePaymentIntentReq(testOrderID, ""), e.ErrInvalidOrderTotal},
		{"bad order currency", newOrder("100", "dollars"), NewCreatePaymentIntentReq(testOrderID, ""), e.ErrInvalidCurrency},
		{"bad requested currency", newOrder("100", ""), NewCreatePaymentIntentReq(testOrderID, "u$d"), e.ErrInvalidCurrency},
		{"intent already attached", orderWithIntent("100"), NewCreatePaymentIntentReq(testOrderID, ""), e.ErrPaymentIntentExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(tt.order)

			res, err := f.uc.CreatePaymentIntent(context.Background(), tt.req)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.provider.requests)
			assert.Zero(t, f.orders.mutations)
		})
	}
}

func TestCreatePaymentIntent_ProviderError(t *testing.T) {
	f := newPaymentFixture(newOrder("100", "usd"))
	f.provider.err = errBoom

	_, err := f.uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, ""))

	assert.ErrorIs(t, err, e.ErrPaymentProvider)
	assert.Zero(t, f.orders.mutations)
	assert.Empty(t, f.outbox.events)
}

func TestCreatePaymentIntent_PersistenceError(t *testing.T) {
	f := newPaymentFixture(newOrder("100", "usd"))
	f.orders.attachErr = errBoom

	_, err := f.uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, ""))

	assert.ErrorIs(t, err, e.ErrPersistPaymentIntent)
	assert.ErrorIs(t, err, errBoom)

	var persistErr *e.PersistIntentError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "pi_6f1c2a8e", persistErr.IntentID)
}

func TestCreatePaymentIntent_ConcurrentAttachConflicts(t *testing.T) {
	f := newPaymentFixture(newOrder("100", "usd"))
	f.orders.attachErr = e.ErrPaymentIntentExists

	_, err := f.uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, ""))

	assert.ErrorIs(t, err, e.ErrPaymentIntentExists)
	assert.NotErrorIs(t, err, e.ErrPersistPaymentIntent)
}

func TestCreatePaymentIntent_NotConfigured(t *testing.T) {
	uc := NewPaymentUC(newFakeOrderRepo(), &fakeOutboxRepo{}, nil, &fakeTxManager{}, nil, PaymentConfig{}, nil, logger.NewNop())

	_, err := uc.CreatePaymentIntent(context.Background(), NewCreatePaymentIntentReq(testOrderID, ""))

	assert.ErrorIs(t, err, e.ErrPaymentNotConfigured)
}

func eventPayload(t *testing.T, id string, eventType string, intentID string, amount int64) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":     id,
		"object": "event",
		"type":   eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":       intentID,
				"object":   "payment_intent",
				"amount":   amount,
				"currency": "usd",
				"metadata": map[string]string{"order_id": testOrderID},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func signed(payload []byte) *HandleWebhookReq {
	return NewHandleWebhookReq(payload, webhook.Sign(payload, testWebhookSecret, time.Now()))
}

func TestHandleWebhook_SucceededEqualAmount(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))

	res, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1999)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionApplied, res.Action)
	assert.Equal(t, domain.PaymentEventSucceeded, res.Kind)
	order := f.orders.orders[testOrderID]
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, []string{testIntentID}, f.orders.lockedByPI)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, EventTypePaymentStatusChanged, f.outbox.events[0].EventType)
	assert.True(t, f.events.processed["evt_1"])
}

func TestHandleWebhook_SucceededAmountMismatch(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))

	res, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1500)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionApplied, res.Action)
	order := f.orders.orders[testOrderID]
	assert.Equal(t, domain.PaymentStatusAmountMismatch, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))

	_, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_1", "payment_intent.payment_failed", testIntentID, 1999)))
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusFailed, f.orders.orders[testOrderID].PaymentStatus)
}

func TestHandleWebhook_UnknownEventIsIgnored(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))

	res, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_1", "charge.refunded", testIntentID, 1999)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionIgnored, res.Action)
	assert.Equal(t, domain.PaymentEventUnrecognized, res.Kind)
	assert.Zero(t, f.orders.mutations)
	assert.Empty(t, f.orders.lockedByPI)
	assert.Empty(t, f.outbox.events)
}

func TestHandleWebhook_UnknownEventWithoutIDIsIgnored(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))

	res, err := f.uc.HandleWebhook(context.Background(), signed([]byte(`{"type":"customer.created","data":{"object":{}}}`)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionIgnored, res.Action)
	assert.Equal(t, domain.PaymentEventUnrecognized, res.Kind)
	assert.Empty(t, res.EventID)
	assert.Zero(t, f.orders.mutations)
	assert.Empty(t, f.events.processed)
}

func TestHandleWebhook_SucceededWithoutEventID(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))
	f.events.processed[""] = true

	res, err := f.uc.HandleWebhook(context.Background(),
		signed([]byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_3Nabc","amount":1999}}}`)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionApplied, res.Action)
	assert.Equal(t, domain.PaymentEventSucceeded, res.Kind)
	order := f.orders.orders[testOrderID]
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Zero(t, f.events.marks)
}

func TestHandleWebhook_RedeliveryIsIdempotent(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))
	payload := eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1999)
	ctx := context.Background()

	_, err := f.uc.HandleWebhook(ctx, signed(payload))
	require.NoError(t, err)

	res, err := f.uc.HandleWebhook(ctx, signed(payload))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionDuplicate, res.Action)
	assert.Equal(t, 1, f.orders.mutations)
	assert.Equal(t, domain.PaymentStatusPaid, f.orders.orders[testOrderID].PaymentStatus)
}

func TestHandleWebhook_SameOutcomeWithoutDedupeStore(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))
	f.events.checkErr = errBoom
	payload := eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1999)
	ctx := context.Background()

	first, err := f.uc.HandleWebhook(ctx, signed(payload))
	require.NoError(t, err)
	second, err := f.uc.HandleWebhook(ctx, signed(payload))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionApplied, first.Action)
	assert.Equal(t, WebhookActionUnchanged, second.Action)
	assert.Equal(t, 1, f.orders.mutations)
	assert.Len(t, f.outbox.events, 1)
}

func TestHandleWebhook_LateFailureDoesNotOverridePaid(t *testing.T) {
	order := orderWithIntent("1999")
	order.PaymentStatus = domain.PaymentStatusPaid
	order.Status = domain.OrderStatusConfirmed
	f := newPaymentFixture(order)

	res, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_2", "payment_intent.payment_failed", testIntentID, 1999)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionUnchanged, res.Action)
	assert.Equal(t, domain.PaymentStatusPaid, f.orders.orders[testOrderID].PaymentStatus)
}

func TestHandleWebhook_OrderNotFound(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))

	res, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_1", "payment_intent.succeeded", "pi_unknown", 1999)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionOrderNotFound, res.Action)
	assert.Zero(t, f.orders.mutations)
}

func TestHandleWebhook_InfrastructureErrorIsAcknowledged(t *testing.T) {
	f := newPaymentFixture(orderWithIntent("1999"))
	f.orders.updateErr = errBoom

	res, err := f.uc.HandleWebhook(context.Background(), signed(eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1999)))
	require.NoError(t, err)

	assert.Equal(t, WebhookActionErrorLogged, res.Action)
	assert.False(t, f.events.processed["evt_1"])
}

func TestHandleWebhook_RejectsBeforeMutation(t *testing.T) {
	valid := eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1999)
	stale := webhook.Sign(valid, testWebhookSecret, time.Now().Add(-time.Hour))
	garbage := []byte(`{not json`)

	tests := []struct {
		name string
		req  *HandleWebhookReq
		want error
	}{
		{"missing signature", NewHandleWebhookReq(valid, ""), e.ErrMissingSignature},
		{"wrong secret", NewHandleWebhookReq(valid, webhook.Sign(valid, "whsec_other", time.Now())), e.ErrInvalidSignature},
		{"tampered body", NewHandleWebhookReq(eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1), webhook.Sign(valid, testWebhookSecret, time.Now())), e.ErrInvalidSignature},
		{"stale timestamp", NewHandleWebhookReq(valid, stale), e.ErrInvalidSignature},
		{"unparseable body", signed(garbage), e.ErrMalformedPayload},
		{"missing intent object", signed([]byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)), e.ErrMalformedPayload},
		{"missing intent id", signed([]byte(`{"type":"payment_intent.payment_failed","data":{"object":{"amount":1999}}}`)), e.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(orderWithIntent("1999"))

			res, err := f.uc.HandleWebhook(context.Background(), tt.req)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.orders.mutations)
			assert.Empty(t, f.orders.lockedByPI)
		})
	}
}

func TestHandleWebhook_NotConfigured(t *testing.T) {
	uc := NewPaymentUC(newFakeOrderRepo(), &fakeOutboxRepo{}, nil, &fakeTxManager{}, nil, PaymentConfig{}, nil, logger.NewNop())
	payload := eventPayload(t, "evt_1", "payment_intent.succeeded", testIntentID, 1999)

	_, err := uc.HandleWebhook(context.Background(), signed(payload))

	assert.ErrorIs(t, err, e.ErrWebhookNotConfigured)
}

func TestParsePaymentEvent(t *testing.T) {
	ev, err := parsePaymentEvent(eventPayload(t, "evt_9", "payment_intent.succeeded", testIntentID, 4200))
	require.NoError(t, err)

	assert.Equal(t, "evt_9", ev.ID)
	assert.Equal(t, domain.PaymentEventSucceeded, ev.Kind)
	assert.Equal(t, testIntentID, ev.PaymentIntentID)
	assert.Equal(t, int64(4200), ev.Amount)
	assert.Equal(t, "usd", ev.Currency)

	unknown, err := parsePaymentEvent([]byte(fmt.Sprintf(`{"id":"evt_10","type":%q}`, "customer.created")))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentEventUnrecognized, unknown.Kind)
	assert.Empty(t, unknown.PaymentIntentID)

	noType, err := parsePaymentEvent([]byte(`{"data":{"object":{"id":"pi_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentEventUnrecognized, noType.Kind)
}
