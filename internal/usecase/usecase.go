package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
)

type VisualSearchUC interface {
	Run(ctx context.Context, req *VisualSearchReq) (*domain.VisualSearchResult, error)
}

type SimilaritySearchUC interface {
	Search(ctx context.Context, vector *domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error)
}

type PaymentUC interface {
	CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentReq) (*CreatePaymentIntentRes, error)
	HandleWebhook(ctx context.Context, req *HandleWebhookReq) (*HandleWebhookRes, error)
}
