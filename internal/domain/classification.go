package domain

import "sort"

// BoundingBox — прямоугольник объекта в нормированных координатах.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClassificationLabel — один предсказанный тег изображения.
type ClassificationLabel struct {
	Label       string       `json:"label"`
	Confidence  float64      `json:"confidence"` // 0..1
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// ClassificationResult хранит метки по убыванию уверенности; TopLabel указывает на первую из них или nil.
type ClassificationResult struct {
	Labels   []ClassificationLabel `json:"labels"`
	TopLabel *ClassificationLabel  `json:"topLabel"`
}

// NewClassificationResult сортирует метки по убыванию уверенности и выставляет TopLabel.
// Исходный срез не изменяется.
func NewClassificationResult(labels []ClassificationLabel) *ClassificationResult {
	sorted := make([]ClassificationLabel, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	res := &ClassificationResult{Labels: sorted}
	if len(sorted) > 0 {
		top := sorted[0]
		res.TopLabel = &top
	}

	return res
}

// Keyword возвращает ключевое слово для текстового поиска: метку TopLabel или defaultKeyword.
func (c *ClassificationResult) Keyword() string {
	if c == nil || c.TopLabel == nil || c.TopLabel.Label == "" {
		return DefaultFallbackKeyword
	}

	return c.TopLabel.Label
}
