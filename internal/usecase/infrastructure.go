package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
)

// ImagePicker отдаёт изображение, выбранное пользователем.
// Pick возвращает nil без ошибки, если пользователь отменил выбор.
type ImagePicker interface {
	RequestPermission(ctx context.Context) (bool, error)
	Pick(ctx context.Context) (*domain.PickedImage, error)
}

type ImageCompressor interface {
	Compress(ctx context.Context, image *domain.PickedImage) ([]byte, error)
}

type BlobUploader interface {
	Upload(ctx context.Context, req *UploadImageReq) (*domain.UploadedImage, error)
}

type Classifier interface {
	Classify(ctx context.Context, imageURL string) (*domain.ClassificationResult, error)
}

type Embedder interface {
	Embed(ctx context.Context, imageURL string) (*domain.EmbeddingVector, error)
}

type SimilaritySearcher interface {
	Search(ctx context.Context, vector *domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error)
}

// KeywordSearcher никогда не возвращает ошибку: исход фиксируется в StepOutcome.
type KeywordSearcher interface {
	Search(ctx context.Context, keyword string) ([]domain.SearchMatch, domain.StepOutcome)
}

type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, req *CreateProviderIntentReq) (*ProviderIntent, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// Metrics собирает счётчики бизнес-операций.
type Metrics interface {
	ObserveVisualSearch(outcome string)
	ObservePaymentIntent(outcome string)
	ObserveWebhook(kind string, action string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveVisualSearch(string)    {}
func (nopMetrics) ObservePaymentIntent(string)   {}
func (nopMetrics) ObserveWebhook(string, string) {}
