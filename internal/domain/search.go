package domain

const (
	// FallbackScore — постоянный score совпадений текстового поиска.
	// Это не мера сходства: сравнивать его со score векторного поиска нельзя.
	FallbackScore = 0.5

	// DefaultFallbackKeyword используется, если классификация не вернула ни одной метки.
	DefaultFallbackKeyword = "product"
)

// SearchMatch — найденный товар. Score упорядочивает выдачу, абсолютное значение зависит от провайдера.
type SearchMatch struct {
	ProductID string  `json:"productId"`
	Score     float64 `json:"score"`
	Name      *string `json:"name,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
	Price     *int64  `json:"price,omitempty"`
}

// StepOutcome фиксирует, чем завершился шаг пайплайна.
// Фатальный шаг в трассу не попадает: пайплайн возвращает ошибку без результата.
type StepOutcome string

const (
	StepSucceeded StepOutcome = "succeeded"
	StepDegraded  StepOutcome = "degraded" // шаг не удался, пайплайн продолжил работу
	StepSkipped   StepOutcome = "skipped"
)

// PipelineTrace показывает, какие ветки пайплайна были выполнены.
type PipelineTrace struct {
	Compression   StepOutcome `json:"compression"`
	Search        StepOutcome `json:"search"`
	FallbackQuery StepOutcome `json:"fallbackQuery"`
}

// VisualSearchResult — итог одного запуска визуального поиска. Не сохраняется.
type VisualSearchResult struct {
	Image                  UploadedImage        `json:"image"`
	Classification         ClassificationResult `json:"classification"`
	Embedding              *EmbeddingVector     `json:"embedding"`
	Matches                []SearchMatch        `json:"matches"`
	UsedFallbackTextSearch bool                 `json:"usedFallbackTextSearch"`
	Trace                  PipelineTrace        `json:"trace"`
}
