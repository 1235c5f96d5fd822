package domain

// EmbeddingSpace идентифицирует пространство эмбеддингов.
// Векторы сравнимы только внутри одного пространства.
type EmbeddingSpace struct {
	Provider string
	Model    string
}

// EmbeddingVector — вектор изображения фиксированной размерности.
type EmbeddingVector struct {
	Values   []float32 `json:"values"`
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	TookMs   *int64    `json:"tookMs"`
}

func NewEmbeddingVector(values []float32, provider string, model string, tookMs *int64) *EmbeddingVector {
	return &EmbeddingVector{
		Values:   values,
		Provider: provider,
		Model:    model,
		TookMs:   tookMs,
	}
}

func (v *EmbeddingVector) Dims() int {
	return len(v.Values)
}

func (v *EmbeddingVector) Space() EmbeddingSpace {
	return EmbeddingSpace{Provider: v.Provider, Model: v.Model}
}

// Admits сообщает, можно ли искать вектором v в пространстве s.
// Пустое поле с любой стороны совпадает с любым значением.
func (s EmbeddingSpace) Admits(v *EmbeddingVector) bool {
	if v == nil {
		return false
	}

	return sameOrUnset(s.Provider, v.Provider) && sameOrUnset(s.Model, v.Model)
}

func sameOrUnset(a, b string) bool {
	return a == "" || b == "" || a == b
}

// ScoredPoint — точка векторного индекса, найденная по запросу.
type ScoredPoint struct {
	ProductID int64
	ImagePath string
	Score     float32
}
