package converter

import "time"

// OrderModel представляет запись таблицы orders в PostgreSQL.
// total_amount читается как текст, чтобы не терять точность NUMERIC.
type OrderModel struct {
	ID              string     `db:"id"`
	TotalAmount     string     `db:"total_amount"`
	Currency        string     `db:"currency"`
	PaymentIntentID *string    `db:"payment_intent_id"`
	PaymentStatus   string     `db:"payment_status"`
	Status          string     `db:"status"`
	UpdatedAt       *time.Time `db:"updated_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventType   string     `db:"event_type"`
	AggregateID string     `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
