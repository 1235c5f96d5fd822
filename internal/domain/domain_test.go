package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassificationResult(t *testing.T) {
	t.Run("sorts labels by confidence and picks top", func(t *testing.T) {
		labels := []ClassificationLabel{
			{Label: "shoe", Confidence: 0.4},
			{Label: "sneaker", Confidence: 0.9},
			{Label: "boot", Confidence: 0.7},
		}

		res := NewClassificationResult(labels)

		require.NotNil(t, res.TopLabel)
		assert.Equal(t, "sneaker", res.TopLabel.Label)
		assert.Equal(t, []string{"sneaker", "boot", "shoe"}, labelNames(res.Labels))
		assert.Equal(t, "shoe", labels[0].Label, "input must not be reordered")
		assert.Equal(t, "sneaker", res.Keyword())
	})

	t.Run("empty labels give nil top label and default keyword", func(t *testing.T) {
		res := NewClassificationResult(nil)

		assert.Nil(t, res.TopLabel)
		assert.Empty(t, res.Labels)
		assert.Equal(t, "product", res.Keyword())
	})
}

func TestEmbeddingSpace_Admits(t *testing.T) {
	space := EmbeddingSpace{Provider: "openai", Model: "clip"}

	assert.True(t, space.Admits(NewEmbeddingVector([]float32{3, 2, 1}, "openai", "clip", nil)))
	assert.True(t, space.Admits(NewEmbeddingVector([]float32{3, 2, 1}, "", "", nil)))
	assert.False(t, space.Admits(NewEmbeddingVector([]float32{3, 2, 1}, "openai", "siglip", nil)))
	assert.False(t, space.Admits(NewEmbeddingVector([]float32{3, 2, 1}, "cohere", "clip", nil)))
	assert.False(t, space.Admits(nil))
	assert.True(t, EmbeddingSpace{}.Admits(NewEmbeddingVector([]float32{1}, "cohere", "clip", nil)))
}

func TestOrder_ChargeAmount(t *testing.T) {
	tests := []struct {
		total  string
		amount int64
		ok     bool
	}{
		{"5000", 5000, true},
		{"1999.4", 1999, true},
		{"1999.5", 2000, true},
		{"0", 0, false},
		{"0.4", 0, false},
		{"-100", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			o := &Order{TotalAmount: decimal.RequireFromString(tt.total)}
			amount, ok := o.ChargeAmount()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.amount, amount)
		})
	}
}

func TestOrder_ApplyPaymentEvent(t *testing.T) {
	newOrder := func(ps PaymentStatus) *Order {
		return &Order{
			ID:            "order-1",
			TotalAmount:   decimal.NewFromInt(1999),
			PaymentStatus: ps,
			Status:        OrderStatusPending,
		}
	}

	t.Run("succeeded with equal amount confirms order", func(t *testing.T) {
		tr := newOrder(PaymentStatusPending).ApplyPaymentEvent(&PaymentEvent{Kind: PaymentEventSucceeded, Amount: 1999})

		assert.Equal(t, PaymentStatusPaid, tr.PaymentStatus)
		assert.Equal(t, OrderStatusConfirmed, tr.Status)
		assert.True(t, tr.Changed)
	})

	t.Run("succeeded with different amount flags mismatch", func(t *testing.T) {
		tr := newOrder(PaymentStatusPending).ApplyPaymentEvent(&PaymentEvent{Kind: PaymentEventSucceeded, Amount: 1500})

		assert.Equal(t, PaymentStatusAmountMismatch, tr.PaymentStatus)
		assert.Equal(t, OrderStatusPending, tr.Status)
		assert.True(t, tr.Changed)
	})

	t.Run("failed marks order failed", func(t *testing.T) {
		tr := newOrder(PaymentStatusPending).ApplyPaymentEvent(&PaymentEvent{Kind: PaymentEventFailed})

		assert.Equal(t, PaymentStatusFailed, tr.PaymentStatus)
		assert.Equal(t, OrderStatusPending, tr.Status)
		assert.True(t, tr.Changed)
	})

	t.Run("late failure does not overwrite paid", func(t *testing.T) {
		o := newOrder(PaymentStatusPaid)
		o.Status = OrderStatusConfirmed

		tr := o.ApplyPaymentEvent(&PaymentEvent{Kind: PaymentEventFailed})

		assert.Equal(t, PaymentStatusPaid, tr.PaymentStatus)
		assert.Equal(t, OrderStatusConfirmed, tr.Status)
		assert.False(t, tr.Changed)
	})

	t.Run("replayed success is a no-op", func(t *testing.T) {
		o := newOrder(PaymentStatusPaid)
		o.Status = OrderStatusConfirmed

		tr := o.ApplyPaymentEvent(&PaymentEvent{Kind: PaymentEventSucceeded, Amount: 1999})

		assert.Equal(t, PaymentStatusPaid, tr.PaymentStatus)
		assert.False(t, tr.Changed)
	})

	t.Run("unrecognized event changes nothing", func(t *testing.T) {
		tr := newOrder(PaymentStatusPending).ApplyPaymentEvent(&PaymentEvent{Kind: PaymentEventUnrecognized})

		assert.Equal(t, PaymentStatusPending, tr.PaymentStatus)
		assert.False(t, tr.Changed)
	})
}

func TestParsePaymentEventKind(t *testing.T) {
	assert.Equal(t, PaymentEventSucceeded, ParsePaymentEventKind("payment_intent.succeeded"))
	assert.Equal(t, PaymentEventFailed, ParsePaymentEventKind("payment_intent.payment_failed"))
	assert.Equal(t, PaymentEventUnrecognized, ParsePaymentEventKind("charge.refunded"))
	assert.Equal(t, PaymentEventUnrecognized, ParsePaymentEventKind(""))
}

func labelNames(labels []ClassificationLabel) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Label)
	}
	return names
}
