package domain

// PaymentEventKind — закрытый набор событий провайдера, которые мы обрабатываем.
type PaymentEventKind int

const (
	PaymentEventUnrecognized PaymentEventKind = iota
	PaymentEventSucceeded
	PaymentEventFailed
)

const (
	StripeEventPaymentSucceeded = "payment_intent.succeeded"
	StripeEventPaymentFailed    = "payment_intent.payment_failed"
)

// ParsePaymentEventKind сопоставляет тип события провайдера с PaymentEventKind.
// Всё неизвестное отображается в PaymentEventUnrecognized.
func ParsePaymentEventKind(eventType string) PaymentEventKind {
	switch eventType {
	case StripeEventPaymentSucceeded:
		return PaymentEventSucceeded
	case StripeEventPaymentFailed:
		return PaymentEventFailed
	default:
		return PaymentEventUnrecognized
	}
}

func (k PaymentEventKind) String() string {
	switch k {
	case PaymentEventSucceeded:
		return "succeeded"
	case PaymentEventFailed:
		return "failed"
	default:
		return "unrecognized"
	}
}

// PaymentEvent — проверенное событие вебхука.
type PaymentEvent struct {
	ID              string
	Type            string
	Kind            PaymentEventKind
	PaymentIntentID string
	Amount          int64 // сумма, о которой сообщил провайдер
	Currency        string
}
