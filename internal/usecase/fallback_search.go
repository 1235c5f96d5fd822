package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

// FallbackSearch ищет товары по подстроке названия без учёта регистра.
// Используется, когда векторный поиск недоступен.
type FallbackSearch struct {
	productRepo ProductRepository
	pageSize    int
	logger      logger.Logger
}

func NewFallbackSearch(productRepo ProductRepository, pageSize int, logger logger.Logger) *FallbackSearch {
	return &FallbackSearch{
		productRepo: productRepo,
		pageSize:    pageSize,
		logger:      logger,
	}
}

// Search возвращает не более pageSize товаров, каждому присваивается domain.FallbackScore.
// Ошибка хранилища не пробрасывается: возвращается пустой список и StepDegraded.
func (f *FallbackSearch) Search(ctx context.Context, keyword string) ([]domain.SearchMatch, domain.StepOutcome) {
	const op = "FallbackSearch.Search"

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		keyword = domain.DefaultFallbackKeyword
	}

	products, err := f.productRepo.SearchByName(ctx, keyword, f.pageSize)
	if err != nil {
		f.logger.Errorf(e.Wrap(op, err), "fallback text search failed for keyword %q", keyword)
		return []domain.SearchMatch{}, domain.StepDegraded
	}

	if f.pageSize > 0 && len(products) > f.pageSize {
		products = products[:f.pageSize]
	}

	matches := make([]domain.SearchMatch, 0, len(products))
	for _, p := range products {
		matches = append(matches, p.ToSearchMatch(domain.FallbackScore))
	}

	return matches, domain.StepSucceeded
}
