package mlservice

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
)

type searchRequest struct {
	Embedding []float32 `json:"embedding"`
	TopK      int       `json:"topK"`
}

type searchResponse struct {
	Matches []domain.SearchMatch `json:"matches"`
}

// Searcher вызывает удалённый эндпоинт поиска похожих товаров.
// Векторы из чужого пространства эмбеддингов отклоняются до отправки запроса.
type Searcher struct {
	*client
	url   string
	space domain.EmbeddingSpace
}

func NewSearcher(httpClient *http.Client, conf *cfg.MLServiceCfg, space domain.EmbeddingSpace) *Searcher {
	return &Searcher{
		client: newClient(httpClient, conf),
		url:    conf.SearchURL,
		space:  space,
	}
}

func (s *Searcher) Search(ctx context.Context, vector *domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error) {
	const op = "Searcher.Search"

	if vector == nil || vector.Dims() == 0 {
		return nil, e.Wrap(op, e.ErrInvalidEmbedding)
	}
	if topK <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidTopK)
	}
	if !s.space.Admits(vector) {
		return nil, e.Wrap(op, fmt.Errorf("%w: got %s/%s, index is %s/%s",
			e.ErrEmbeddingSpaceMismatch, vector.Provider, vector.Model, s.space.Provider, s.space.Model))
	}

	var resp searchResponse
	if err := s.doJSON(ctx, endpointSearch, s.url, searchRequest{Embedding: vector.Values, TopK: topK}, &resp); err != nil {
		return nil, err
	}

	if resp.Matches == nil {
		return nil, malformed(endpointSearch, "matches is missing")
	}
	for i, m := range resp.Matches {
		if m.ProductID == "" {
			return nil, malformed(endpointSearch, fmt.Sprintf("match %d has no productId", i))
		}
	}

	return resp.Matches, nil
}
