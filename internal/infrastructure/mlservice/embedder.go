package mlservice

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
)

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Dims      int       `json:"dims"`
	TookMs    *int64    `json:"tookMs"`
}

// Embedder вызывает удалённый эндпоинт получения эмбеддинга изображения.
type Embedder struct {
	*client
	url string
}

func NewEmbedder(httpClient *http.Client, conf *cfg.MLServiceCfg) *Embedder {
	return &Embedder{
		client: newClient(httpClient, conf),
		url:    conf.EmbedURL,
	}
}

func (m *Embedder) Embed(ctx context.Context, imageURL string) (*domain.EmbeddingVector, error) {
	var resp embedResponse
	if err := m.doJSON(ctx, endpointEmbed, m.url, imageURLRequest{ImageURL: imageURL}, &resp); err != nil {
		return nil, err
	}

	switch {
	case len(resp.Embedding) == 0:
		return nil, malformed(endpointEmbed, "embedding is empty")
	case resp.Dims > 0 && resp.Dims != len(resp.Embedding):
		return nil, malformed(endpointEmbed, fmt.Sprintf("dims %d, got %d values", resp.Dims, len(resp.Embedding)))
	case resp.Provider == "" || resp.Model == "":
		return nil, malformed(endpointEmbed, "provider and model are required")
	}

	return domain.NewEmbeddingVector(resp.Embedding, resp.Provider, resp.Model, resp.TookMs), nil
}
