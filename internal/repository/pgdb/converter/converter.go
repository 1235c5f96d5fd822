package converter

import (
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/shopspring/decimal"
)

// OrderConverter преобразует заказ между моделью PostgreSQL и domain.
type OrderConverter struct{}

// ToEntity не падает на нечисловой сумме (например NaN): такая сумма становится нулём
// и отклоняется при создании интента как невалидная.
func (OrderConverter) ToEntity(model *OrderModel) *domain.Order {
	total, err := decimal.NewFromString(model.TotalAmount)
	if err != nil {
		total = decimal.Zero
	}

	return &domain.Order{
		ID:              model.ID,
		TotalAmount:     total,
		Currency:        model.Currency,
		PaymentIntentID: model.PaymentIntentID,
		PaymentStatus:   domain.PaymentStatus(model.PaymentStatus),
		Status:          domain.OrderStatus(model.Status),
		UpdatedAt:       model.UpdatedAt,
	}
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventType:   string(entity.EventType),
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventType:   usecase.OutboxEventType(model.EventType),
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, model := range models {
		result = append(result, c.ToEntity(model))
	}

	return result
}
