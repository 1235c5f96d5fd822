package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
)

type ProductRepository interface {
	GetProductsInfo(ctx context.Context, ids []int64) ([]ProductInfo, error)
	SearchByName(ctx context.Context, keyword string, limit int) ([]ProductInfo, error)
}

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentIntentIDForUpdate(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	AttachPaymentIntent(ctx context.Context, orderID string, paymentIntentID string) error
	UpdatePaymentStatus(ctx context.Context, orderID string, paymentStatus domain.PaymentStatus, status domain.OrderStatus) error
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
}

type EmbeddingRepository interface {
	Search(ctx context.Context, req *VectorSearchReq) ([]domain.ScoredPoint, error)
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
}

type WebhookEventRepository interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	ReturnToPending(ctx context.Context, id int64) error
}

// TxManager выполняет fn в одной транзакции БД.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
