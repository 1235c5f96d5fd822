package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

// У товара может быть несколько изображений в индексе, поэтому точек запрашивается больше, чем topK.
const pointsPerProduct = 3

// SimilaritySearchUseCase ищет товары по вектору изображения в векторном индексе
// и дополняет совпадения карточками товаров из кэша или БД.
type SimilaritySearchUseCase struct {
	embeddingRepo EmbeddingRepository
	productRepo   ProductRepository
	cacheRepo     CacheRepository
	space         domain.EmbeddingSpace
	vectorSize    int
	maxTopK       int
	logger        logger.Logger
}

func NewSimilaritySearchUC(
	embeddingRepo EmbeddingRepository,
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	space domain.EmbeddingSpace,
	vectorSize int,
	maxTopK int,
	logger logger.Logger,
) *SimilaritySearchUseCase {
	return &SimilaritySearchUseCase{
		embeddingRepo: embeddingRepo,
		productRepo:   productRepo,
		cacheRepo:     cacheRepo,
		space:         space,
		vectorSize:    vectorSize,
		maxTopK:       maxTopK,
		logger:        logger,
	}
}

// Search возвращает не более topK товаров по убыванию сходства, по одному совпадению на товар.
// Вектор из другого пространства эмбеддингов отклоняется, а не сравнивается.
func (s *SimilaritySearchUseCase) Search(ctx context.Context, vector *domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error) {
	const op = "SimilaritySearchUseCase.Search"

	if err := s.validate(vector, topK); err != nil {
		return nil, e.Wrap(op, err)
	}
	if s.maxTopK > 0 && topK > s.maxTopK {
		topK = s.maxTopK
	}

	points, err := s.embeddingRepo.Search(ctx, NewVectorSearchReq(vector.Values, s.space.Model, uint64(topK*pointsPerProduct)))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Лучшая точка на товар. Индекс отдаёт точки по убыванию score
	best := make(map[int64]float32, len(points))
	ids := make([]int64, 0, topK)
	for _, p := range points {
		if _, ok := best[p.ProductID]; ok {
			continue
		}
		best[p.ProductID] = p.Score
		ids = append(ids, p.ProductID)
		if len(ids) == topK {
			break
		}
	}

	if len(ids) == 0 {
		return []domain.SearchMatch{}, nil
	}

	products, err := s.getProductsInfo(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	matches := make([]domain.SearchMatch, 0, len(ids))
	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			// Товар удалён из каталога, но ещё есть в индексе
			s.logger.Debugf("product %d found in vector index but not in catalog", id)
			continue
		}
		matches = append(matches, product.ToSearchMatch(float64(best[id])))
	}

	return matches, nil
}

func (s *SimilaritySearchUseCase) validate(vector *domain.EmbeddingVector, topK int) error {
	if topK <= 0 {
		return e.ErrInvalidTopK
	}
	if vector == nil || vector.Dims() == 0 {
		return e.ErrInvalidEmbedding
	}
	if s.vectorSize > 0 && vector.Dims() != s.vectorSize {
		return e.ErrEmbeddingSpaceMismatch
	}
	if !s.space.Admits(vector) {
		return e.ErrEmbeddingSpaceMismatch
	}

	return nil
}

// getProductsInfo достаёт товары сначала из кэша, остальные из БД, и в фоне докладывает их в кэш.
func (s *SimilaritySearchUseCase) getProductsInfo(ctx context.Context, ids []int64) (map[int64]ProductInfo, error) {
	const op = "SimilaritySearchUseCase.getProductsInfo"

	result := make(map[int64]ProductInfo, len(ids))

	cached, err := s.cacheRepo.GetProducts(ctx, ids)
	if err != nil {
		s.logger.Warnf("Failed to read products from cache: %v", e.Wrap(op, err))
		cached = nil
	}

	var missing []int64
	for _, id := range ids {
		if product, ok := cached[id]; ok {
			result[id] = product
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	fromDB, err := s.productRepo.GetProductsInfo(ctx, missing)
	if err != nil {
		return nil, err
	}

	for _, product := range fromDB {
		result[product.ID] = product
	}

	if len(fromDB) > 0 {
		// Фоновое добавление продуктов в хэш
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := s.cacheRepo.SetProducts(bgCtx, fromDB); err != nil {
				s.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
			}
		}()
	}

	return result, nil
}
