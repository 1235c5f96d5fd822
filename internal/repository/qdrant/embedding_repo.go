package qdrant

import (
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// Поля payload точки
const (
	payloadProductID      = "product_id"
	payloadImagePath      = "image_path"
	payloadEmbeddingModel = "embedding_model"
)

// EmbeddingRepo репозиторий для работы с embedding-векторами в Qdrant
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Search возвращает ближайшие точки по косинусному сходству, только для модели req.Model.
// Точки без product_id пропускаются.
func (q *EmbeddingRepo) Search(ctx context.Context, req *usecase.VectorSearchReq) ([]domain.ScoredPoint, error) {
	limit := req.Limit

	query := &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(req.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayloadInclude(payloadProductID, payloadImagePath),
	}
	if req.Model != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadEmbeddingModel, req.Model)},
		}
	}

	res, err := q.client.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	points := make([]domain.ScoredPoint, 0, len(res))
	for _, p := range res {
		productID, ok := p.GetPayload()[payloadProductID]
		if !ok {
			continue
		}

		points = append(points, domain.ScoredPoint{
			ProductID: productID.GetIntegerValue(),
			ImagePath: p.GetPayload()[payloadImagePath].GetStringValue(),
			Score:     p.GetScore(),
		})
	}

	return points, nil
}
