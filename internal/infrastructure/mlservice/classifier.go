package mlservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
)

type imageURLRequest struct {
	ImageURL string `json:"imageUrl"`
}

type classifyResponse struct {
	Labels []domain.ClassificationLabel `json:"labels"`
}

// Classifier вызывает удалённый эндпоинт классификации изображений.
type Classifier struct {
	*client
	url string
}

func NewClassifier(httpClient *http.Client, conf *cfg.MLServiceCfg) *Classifier {
	return &Classifier{
		client: newClient(httpClient, conf),
		url:    conf.ClassifyURL,
	}
}

// Classify возвращает метки по убыванию уверенности. TopLabel присланный сервисом не учитывается,
// он вычисляется заново из отсортированных меток.
func (c *Classifier) Classify(ctx context.Context, imageURL string) (*domain.ClassificationResult, error) {
	var resp classifyResponse
	if err := c.doJSON(ctx, endpointClassify, c.url, imageURLRequest{ImageURL: imageURL}, &resp); err != nil {
		return nil, err
	}

	for i, l := range resp.Labels {
		if strings.TrimSpace(l.Label) == "" {
			return nil, malformed(endpointClassify, fmt.Sprintf("label %d is empty", i))
		}
		if l.Confidence < 0 || l.Confidence > 1 {
			return nil, malformed(endpointClassify, fmt.Sprintf("label %q confidence %v out of range", l.Label, l.Confidence))
		}
	}

	return domain.NewClassificationResult(resp.Labels), nil
}
