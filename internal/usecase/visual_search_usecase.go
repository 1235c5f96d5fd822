package usecase

import (
	"context"
	"sort"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

const uploadContentType = "image/jpeg"

// Исходы запуска для метрик
const (
	visualSearchCanceled = "canceled"
	visualSearchVector   = "vector"
	visualSearchFallback = "fallback"
	visualSearchFailed   = "failed"
)

// VisualSearchUseCase выполняет пайплайн визуального поиска:
// выбор -> сжатие -> загрузка -> классификация -> эмбеддинг + поиск, с текстовым поиском как запасным вариантом.
type VisualSearchUseCase struct {
	compressor  ImageCompressor
	uploader    BlobUploader
	classifier  Classifier
	embedder    Embedder
	searcher    SimilaritySearcher
	fallback    KeywordSearcher
	metrics     Metrics
	logger      logger.Logger
	defaultTopK int
	maxTopK     int
}

func NewVisualSearchUC(
	compressor ImageCompressor,
	uploader BlobUploader,
	classifier Classifier,
	embedder Embedder,
	searcher SimilaritySearcher,
	fallback KeywordSearcher,
	metrics Metrics,
	logger logger.Logger,
	defaultTopK int,
	maxTopK int,
) *VisualSearchUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &VisualSearchUseCase{
		compressor:  compressor,
		uploader:    uploader,
		classifier:  classifier,
		embedder:    embedder,
		searcher:    searcher,
		fallback:    fallback,
		metrics:     metrics,
		logger:      logger,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
}

// Run запускает пайплайн. Возвращает (nil, nil), если пользователь не дал доступ или отменил выбор.
// Ошибки загрузки и классификации фатальны. Ошибка эмбеддинга или векторного поиска
// переключает пайплайн на текстовый поиск по метке классификации.
func (v *VisualSearchUseCase) Run(ctx context.Context, req *VisualSearchReq) (*domain.VisualSearchResult, error) {
	const op = "VisualSearchUseCase.Run"

	if req == nil || req.Picker == nil {
		return nil, e.Wrap(op, e.ErrStatusBadRequest)
	}

	topK, err := v.resolveTopK(req.TopK)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Выбор изображения
	picked, err := v.pick(ctx, req.Picker)
	if err != nil {
		v.metrics.ObserveVisualSearch(visualSearchFailed)
		return nil, e.Wrap(op, err)
	}
	if picked == nil {
		v.metrics.ObserveVisualSearch(visualSearchCanceled)
		return nil, nil
	}

	trace := domain.PipelineTrace{
		Search:        domain.StepSkipped,
		FallbackQuery: domain.StepSkipped,
	}

	// Сжатие. Ошибка не фатальна: загружаем исходные байты
	var data []byte
	data, trace.Compression = v.compress(ctx, picked)

	// Загрузка
	uploaded, err := v.uploader.Upload(ctx, NewUploadImageReq(data, uploadContentType))
	if err != nil {
		v.metrics.ObserveVisualSearch(visualSearchFailed)
		return nil, e.Wrap(op, e.Join(e.ErrUploadFailed, err))
	}

	// Классификация
	classification, err := v.classifier.Classify(ctx, uploaded.PublicURL)
	if err != nil {
		v.metrics.ObserveVisualSearch(visualSearchFailed)
		return nil, e.Wrap(op, e.Join(e.ErrClassificationFailed, err))
	}

	result := &domain.VisualSearchResult{
		Image:          *uploaded,
		Classification: *classification,
	}

	// Эмбеддинг и векторный поиск
	embedding, matches, err := v.vectorSearch(ctx, uploaded.PublicURL, topK)
	if err != nil {
		keyword := classification.Keyword()
		v.logger.Warnf("vector search failed, falling back to keyword %q: %v", keyword, e.Wrap(op, err))

		trace.Search = domain.StepDegraded
		matches, trace.FallbackQuery = v.fallback.Search(ctx, keyword)
		result.UsedFallbackTextSearch = true
		v.metrics.ObserveVisualSearch(visualSearchFallback)
	} else {
		trace.Search = domain.StepSucceeded
		result.Embedding = embedding
		v.metrics.ObserveVisualSearch(visualSearchVector)
	}

	result.Matches = rankMatches(matches, topK)
	result.Trace = trace

	return result, nil
}

func (v *VisualSearchUseCase) resolveTopK(topK int) (int, error) {
	switch {
	case topK < 0:
		return 0, e.ErrInvalidTopK
	case topK == 0:
		return v.defaultTopK, nil
	case v.maxTopK > 0 && topK > v.maxTopK:
		return v.maxTopK, nil
	default:
		return topK, nil
	}
}

// pick запрашивает доступ и изображение. nil без ошибки означает отмену.
func (v *VisualSearchUseCase) pick(ctx context.Context, picker ImagePicker) (*domain.PickedImage, error) {
	granted, err := picker.RequestPermission(ctx)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, nil
	}

	picked, err := picker.Pick(ctx)
	if err != nil {
		return nil, err
	}
	if picked == nil || len(picked.Data) == 0 {
		return nil, nil
	}

	return picked, nil
}

func (v *VisualSearchUseCase) compress(ctx context.Context, picked *domain.PickedImage) ([]byte, domain.StepOutcome) {
	const op = "VisualSearchUseCase.compress"

	if v.compressor == nil {
		return picked.Data, domain.StepSkipped
	}

	data, err := v.compressor.Compress(ctx, picked)
	if err == nil && len(data) == 0 {
		err = e.ErrMalformedResponse
	}
	if err != nil {
		v.logger.Warnf("compression failed for %q, uploading original bytes: %v", picked.Name, e.Wrap(op, err))
		return picked.Data, domain.StepDegraded
	}

	return data, domain.StepSucceeded
}

func (v *VisualSearchUseCase) vectorSearch(ctx context.Context, imageURL string, topK int) (*domain.EmbeddingVector, []domain.SearchMatch, error) {
	embedding, err := v.embedder.Embed(ctx, imageURL)
	if err != nil {
		return nil, nil, err
	}
	if embedding == nil || embedding.Dims() == 0 {
		return nil, nil, e.ErrEmptyVectors
	}

	matches, err := v.searcher.Search(ctx, embedding, topK)
	if err != nil {
		return nil, nil, err
	}

	return embedding, matches, nil
}

// rankMatches сортирует совпадения по убыванию score (стабильно) и обрезает до topK.
func rankMatches(matches []domain.SearchMatch, topK int) []domain.SearchMatch {
	ranked := make([]domain.SearchMatch, len(matches))
	copy(ranked, matches)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked
}
