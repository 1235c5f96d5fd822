package pgdb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/visual-commerce/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const (
	outboxChannel = "outbox_pending"

	// Событие в PROCESSING дольше этого срока считается брошенным упавшим воркером.
	staleProcessingAfter = "5 minutes"
)

// OutboxEventRepo хранит события заказов до публикации в Kafka.
type OutboxEventRepo struct {
	pool *pgxpool.Pool
	conv converter.OutboxEventConverter
}

func NewOutboxEventRepo(pool *pgxpool.Pool, conv converter.OutboxEventConverter) *OutboxEventRepo {
	return &OutboxEventRepo{
		pool: pool,
		conv: conv,
	}
}

// Create пишет событие только в транзакции из контекста, вместе с изменением заказа.
// Уведомление воркеру уходит после коммита этой транзакции.
func (o *OutboxEventRepo) Create(ctx context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("outbox event %s outside transaction: %w", event.EventType, err))
	}

	model := o.conv.ToModel(event)
	const query = `
		INSERT INTO outbox_events (event_type, aggregate_id, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, query, model.EventType, model.AggregateID, model.Payload, model.Status).
		Scan(&model.ID, &model.CreatedAt); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", outboxChannel, model.EventType); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(model), nil
}

// GetAndMarkAsProcessing одним запросом забирает до limit событий в порядке создания.
// Параллельные воркеры получают разные события (SKIP LOCKED).
func (o *OutboxEventRepo) GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	const query = `
		UPDATE outbox_events
		SET status = $1, processing_started_at = now()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = $2
			   OR (status = $1 AND processing_started_at < now() - $4::interval)
			ORDER BY created_at, id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, aggregate_id, payload, status, created_at, processed_at
	`

	rows, err := o.pool.Query(ctx, query,
		string(usecase.OutboxStatusProcessing), string(usecase.OutboxStatusPending), limit, staleProcessingAfter)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[converter.OutboxEventModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// UPDATE ... RETURNING не сохраняет порядок подзапроса
	sortByCreation(models)
	return o.conv.ToArrEntity(models), nil
}

// MarkAsProcessed не трогает событие, которое уже забрал другой воркер.
func (o *OutboxEventRepo) MarkAsProcessed(ctx context.Context, id int64) error {
	const query = `
		UPDATE outbox_events
		SET status = $1, processed_at = now()
		WHERE id = $2 AND status = $3
	`

	if _, err := o.pool.Exec(ctx, query,
		string(usecase.OutboxStatusProcessed), id, string(usecase.OutboxStatusProcessing)); err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("event %d: %w", id, err))
	}

	return nil
}

// ReturnToPending возвращает событие в очередь и увеличивает счётчик попыток.
func (o *OutboxEventRepo) ReturnToPending(ctx context.Context, id int64) error {
	const query = `
		UPDATE outbox_events
		SET status = $1, processing_started_at = NULL, attempts = attempts + 1
		WHERE id = $2 AND status = $3
	`

	if _, err := o.pool.Exec(ctx, query,
		string(usecase.OutboxStatusPending), id, string(usecase.OutboxStatusProcessing)); err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("event %d: %w", id, err))
	}

	return nil
}
