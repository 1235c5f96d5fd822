package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"golang.org/x/time/rate"
)

const (
	endpointClassify = "image_classify"
	endpointEmbed    = "image_embed"
	endpointSearch   = "image_search"

	// maxErrorBody ограничивает фрагмент тела ответа, попадающий в текст ошибки.
	maxErrorBody = 512
	// maxResponseBody ограничивает размер читаемого ответа.
	maxResponseBody = 8 << 20
)

// client — общий JSON-over-HTTP транспорт для эндпоинтов ML-сервиса.
type client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	timeout    time.Duration
}

func newClient(httpClient *http.Client, conf *cfg.MLServiceCfg) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if conf.RateLimit > 0 {
		burst := int(conf.RateLimit * 2)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}

	return &client{
		httpClient: httpClient,
		limiter:    limiter,
		apiKey:     conf.APIKey,
		timeout:    conf.Timeout,
	}
}

// doJSON отправляет POST с JSON-телом и декодирует успешный ответ в out.
// Неуспешный статус возвращается как *e.RemoteStatusError, нечитаемое тело как e.ErrMalformedResponse.
func (c *client) doJSON(ctx context.Context, endpoint string, url string, in any, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return e.Wrap(endpoint, err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return e.Wrap(endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return e.Wrap(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return e.Wrap(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &e.RemoteStatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return e.Wrap(endpoint, err)
		}
		return e.Wrap(endpoint, e.Join(e.ErrMalformedResponse, err))
	}

	return nil
}

func malformed(endpoint string, reason string) error {
	return e.Wrap(endpoint, e.Wrap(reason, e.ErrMalformedResponse))
}
