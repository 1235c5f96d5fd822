package http

import (
	"net/http"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

type imageSearchRequest struct {
	Embedding []float32 `json:"embedding"`
	TopK      int       `json:"topK"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
}

type imageSearchResponse struct {
	Matches []domain.SearchMatch `json:"matches"`
}

type SearchHandler struct {
	similarityUC usecase.SimilaritySearchUC
	defaultTopK  int
	logger       logger.Logger
}

func NewSearchHandler(similarityUC usecase.SimilaritySearchUC, defaultTopK int, logger logger.Logger) *SearchHandler {
	return &SearchHandler{similarityUC: similarityUC, defaultTopK: defaultTopK, logger: logger}
}

// imageSearch
//
//	@Summary		Поиск похожих товаров по эмбеддингу
//	@Tags			visual-search
//	@Accept			json
//	@Produce		json
//	@Param			request	body		imageSearchRequest	true	"Эмбеддинг и размер выдачи"
//	@Success		200		{object}	imageSearchResponse
//	@Failure		400		{object}	ErrorResponse	"Некорректный эмбеддинг или topK"
//	@Router			/api/v1/image_search [post]
func (h *SearchHandler) imageSearch(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 1 << 20

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req imageSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = h.defaultTopK
	}

	vector := domain.NewEmbeddingVector(req.Embedding, req.Provider, req.Model, nil)
	matches, err := h.similarityUC.Search(r.Context(), vector, topK)
	if err != nil {
		h.logger.Warnf("image search: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, imageSearchResponse{Matches: matches})
}
