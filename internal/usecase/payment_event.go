package usecase

import (
	"encoding/json"
	"strings"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/stripe/stripe-go/v75"
)

// parsePaymentEvent разбирает тело вебхука в доменное событие. Вид события определяется по type.
// Для неизвестных типов объект события не разбирается, для известных обязателен только data.object.id.
// id события может отсутствовать: такое событие обрабатывается без дедупликации.
func parsePaymentEvent(payload []byte) (*domain.PaymentEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, e.Join(e.ErrMalformedPayload, err)
	}

	eventType := string(event.Type)
	res := &domain.PaymentEvent{
		ID:   event.ID,
		Type: eventType,
		Kind: domain.ParsePaymentEventKind(eventType),
	}

	if res.Kind == domain.PaymentEventUnrecognized {
		return res, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, e.ErrMalformedPayload
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, e.Join(e.ErrMalformedPayload, err)
	}
	if intent.ID == "" {
		return nil, e.ErrMalformedPayload
	}

	res.PaymentIntentID = intent.ID
	res.Amount = intent.Amount
	res.Currency = strings.ToLower(string(intent.Currency))

	return res, nil
}
