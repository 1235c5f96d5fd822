package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const orderColumns = `id::text, total_amount::text, currency, payment_intent_id, payment_status, status, updated_at`

// OrderRepo читает и обновляет поля оплаты заказа. Остальные поля принадлежат сервису заказов.
type OrderRepo struct {
	pool *pgxpool.Pool
	conv converter.OrderConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		conv: conv,
	}
}

func (o *OrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	return o.getOne(ctx, query, id)
}

// GetByPaymentIntentIDForUpdate блокирует строку заказа до конца транзакции из контекста.
func (o *OrderRepo) GetByPaymentIntentIDForUpdate(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1 FOR UPDATE`

	return o.getOne(ctx, query, paymentIntentID)
}

// AttachPaymentIntent записывает id интента, только если он ещё не записан.
// Возвращает e.ErrPaymentIntentExists, если у заказа уже есть интент.
func (o *OrderRepo) AttachPaymentIntent(ctx context.Context, orderID string, paymentIntentID string) error {
	query := `
		UPDATE orders
		SET payment_intent_id = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_intent_id IS NULL
	`

	tag, err := conn(ctx, o.pool).Exec(ctx, query, orderID, paymentIntentID, string(domain.PaymentStatusPending))
	if err != nil {
		if postgresDuplicate(err) {
			return e.Wrap(whereami.WhereAmI(), e.ErrPaymentIntentExists)
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrPaymentIntentExists)
	}

	return nil
}

func (o *OrderRepo) UpdatePaymentStatus(ctx context.Context, orderID string, paymentStatus domain.PaymentStatus, status domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET payment_status = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := conn(ctx, o.pool).Exec(ctx, query, orderID, string(paymentStatus), string(status))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
	}

	return nil
}

func (o *OrderRepo) getOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	var model converter.OrderModel
	err := conn(ctx, o.pool).QueryRow(ctx, query, arg).Scan(
		&model.ID, &model.TotalAmount, &model.Currency, &model.PaymentIntentID,
		&model.PaymentStatus, &model.Status, &model.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(&model), nil
}
