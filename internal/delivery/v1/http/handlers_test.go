package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader достаточно, чтобы http.DetectContentType вернул image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeVisualSearchUC struct {
	got   *domain.PickedImage
	topK  int
	res   *domain.VisualSearchResult
	err   error
	calls int
}

func (f *fakeVisualSearchUC) Run(ctx context.Context, req *usecase.VisualSearchReq) (*domain.VisualSearchResult, error) {
	f.calls++
	f.topK = req.TopK
	img, err := req.Picker.Pick(ctx)
	if err != nil {
		return nil, err
	}
	f.got = img
	if img == nil {
		return nil, nil
	}
	return f.res, f.err
}

type fakeSimilarityUC struct {
	got  *domain.EmbeddingVector
	topK int
	res  []domain.SearchMatch
	err  error
}

func (f *fakeSimilarityUC) Search(_ context.Context, vector *domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error) {
	f.got = vector
	f.topK = topK
	return f.res, f.err
}

type fakePaymentUC struct {
	createReq  *usecase.CreatePaymentIntentReq
	createRes  *usecase.CreatePaymentIntentRes
	createErr  error
	webhookReq *usecase.HandleWebhookReq
	webhookRes *usecase.HandleWebhookRes
	webhookErr error
}

func (f *fakePaymentUC) CreatePaymentIntent(_ context.Context, req *usecase.CreatePaymentIntentReq) (*usecase.CreatePaymentIntentRes, error) {
	f.createReq = req
	return f.createRes, f.createErr
}

func (f *fakePaymentUC) HandleWebhook(_ context.Context, req *usecase.HandleWebhookReq) (*usecase.HandleWebhookRes, error) {
	f.webhookReq = req
	return f.webhookRes, f.webhookErr
}

type testDeps struct {
	visual  *fakeVisualSearchUC
	sim     *fakeSimilarityUC
	payment *fakePaymentUC
}

func newTestRouter(t *testing.T, deps *testDeps, rps float64, burst int) http.Handler {
	t.Helper()
	mux := chi.NewRouter()
	conf := &cfg.HTTPConfig{VisualSearchRPS: rps, VisualSearchBurst: burst}
	NewRouter(mux, conf, nil, logger.NewNop()).Init(UseCases{
		VisualSearch: deps.visual,
		Similarity:   deps.sim,
		Payment:      deps.payment,
		MaxFileSize:  1 << 20,
		DefaultTopK:  12,
	})
	return mux
}

func newDeps() *testDeps {
	return &testDeps{
		visual:  &fakeVisualSearchUC{res: &domain.VisualSearchResult{Matches: []domain.SearchMatch{{ProductID: "1", Score: 0.9}}}},
		sim:     &fakeSimilarityUC{res: []domain.SearchMatch{}},
		payment: &fakePaymentUC{},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func multipartBody(t *testing.T, data []byte, topK string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if data != nil {
		fw, err := mw.CreateFormFile(imageFormField, "shoe.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	if topK != "" {
		require.NoError(t, mw.WriteField("topK", topK))
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestToHTTPResponse(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{e.Wrap("op", e.ErrOrderIDRequired), http.StatusBadRequest},
		{e.Wrap("op", e.ErrInvalidCurrency), http.StatusBadRequest},
		{e.Wrap("op", e.ErrInvalidSignature), http.StatusBadRequest},
		{e.Wrap("op", e.ErrOrderNotFound), http.StatusNotFound},
		{e.Wrap("op", e.ErrPaymentIntentExists), http.StatusConflict},
		{e.Join(e.ErrPersistPaymentIntent, e.ErrTransactionNotFound), http.StatusInternalServerError},
		{e.Wrap("op", e.ErrWebhookNotConfigured), http.StatusInternalServerError},
		{e.Join(e.ErrClassificationFailed, &e.RemoteStatusError{Endpoint: "image_classify", StatusCode: 503}), http.StatusBadGateway},
		{e.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{e.ErrTooManyRequests, http.StatusTooManyRequests},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, _ := ToHTTPResponse(tt.err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	deps := newDeps()
	deps.payment.createRes = usecase.NewCreatePaymentIntentRes("pi_1_secret", "pi_1", "order-1")
	h := newTestRouter(t, deps, 10, 10)

	body := `{"orderId":"order-1","currency":"EUR","amount":1}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create_payment_intent", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret","paymentIntentId":"pi_1","orderId":"order-1"}`, rec.Body.String())
	assert.Equal(t, "order-1", deps.payment.createReq.OrderID)
	assert.Equal(t, "EUR", deps.payment.createReq.Currency)
}

func TestCreatePaymentIntent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		ucErr  error
		status int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, `{"orderId":`, nil, http.StatusBadRequest},
		{"order id required", http.MethodPost, `{}`, e.ErrOrderIDRequired, http.StatusBadRequest},
		{"order not found", http.MethodPost, `{"orderId":"x"}`, e.ErrOrderNotFound, http.StatusNotFound},
		{"intent exists", http.MethodPost, `{"orderId":"x"}`, e.ErrPaymentIntentExists, http.StatusConflict},
		{"not configured", http.MethodPost, `{"orderId":"x"}`, e.ErrPaymentNotConfigured, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newDeps()
			deps.payment.createErr = tt.ucErr
			h := newTestRouter(t, deps, 10, 10)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/create_payment_intent", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.status, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCreatePaymentIntent_PersistFailureDetails(t *testing.T) {
	deps := newDeps()
	deps.payment.createErr = e.Wrap("op", &e.PersistIntentError{IntentID: "pi_3Nabc", Err: assert.AnError})
	h := newTestRouter(t, deps, 10, 10)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create_payment_intent", strings.NewReader(`{"orderId":"x"}`)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, e.ErrPersistPaymentIntent.Error(), resp.Error)
	assert.Contains(t, resp.Details, "pi_3Nabc")
	assert.NotContains(t, resp.Details, assert.AnError.Error())
}

func TestStripeWebhook(t *testing.T) {
	deps := newDeps()
	deps.payment.webhookRes = &usecase.HandleWebhookRes{EventID: "evt_1", Kind: domain.PaymentEventUnrecognized, Action: usecase.WebhookActionIgnored}
	h := newTestRouter(t, deps, 10, 10)

	req := httptest.NewRequest(http.MethodPost, "/stripe_webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, []byte(`{"id":"evt_1"}`), deps.payment.webhookReq.Payload)
	assert.Equal(t, "t=1,v1=abc", deps.payment.webhookReq.Signature)
}

func TestStripeWebhook_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{e.ErrMissingSignature, http.StatusBadRequest},
		{e.ErrInvalidSignature, http.StatusBadRequest},
		{e.ErrMalformedPayload, http.StatusBadRequest},
		{e.ErrWebhookNotConfigured, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			deps := newDeps()
			deps.payment.webhookErr = e.Wrap("op", tt.err)
			h := newTestRouter(t, deps, 10, 10)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stripe_webhook", strings.NewReader(`{}`)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.err.Error(), decodeError(t, rec).Error)
		})
	}
}

func TestVisualSearch(t *testing.T) {
	deps := newDeps()
	h := newTestRouter(t, deps, 10, 10)

	body, contentType := multipartBody(t, pngHeader, "5")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visual-search", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.VisualSearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "1", res.Matches[0].ProductID)
	assert.Equal(t, 5, deps.visual.topK)
	require.NotNil(t, deps.visual.got)
	assert.Equal(t, "image/png", deps.visual.got.MimeType)
	assert.Equal(t, "shoe.png", deps.visual.got.Name)
}

func TestVisualSearch_NoImageIsCancellation(t *testing.T) {
	deps := newDeps()
	h := newTestRouter(t, deps, 10, 10)

	body, contentType := multipartBody(t, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visual-search", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestVisualSearch_RejectsBadInput(t *testing.T) {
	t.Run("not multipart", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(t, newDeps(), 10, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/visual-search", strings.NewReader("{}")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		deps := newDeps()
		body, contentType := multipartBody(t, []byte("plain text, not an image"), "")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/visual-search", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		newTestRouter(t, deps, 10, 10).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Zero(t, deps.visual.calls)
	})

	t.Run("invalid topK", func(t *testing.T) {
		body, contentType := multipartBody(t, pngHeader, "-3")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/visual-search", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		newTestRouter(t, newDeps(), 10, 10).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestVisualSearch_RateLimited(t *testing.T) {
	deps := newDeps()
	h := newTestRouter(t, deps, 0.001, 1)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		body, contentType := multipartBody(t, pngHeader, "")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/visual-search", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, deps.visual.calls)
}

func TestClientLimiter_ForgetsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1, nil)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	now = now.Add(time.Hour)
	assert.True(t, l.allow("10.0.0.2"))
	assert.NotContains(t, l.clients, "10.0.0.1")
}

func TestImageSearch(t *testing.T) {
	deps := newDeps()
	deps.sim.res = []domain.SearchMatch{{ProductID: "7", Score: 0.8}}
	h := newTestRouter(t, deps, 10, 10)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/image_search", strings.NewReader(`{"embedding":[0.1,0.2]}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matches":[{"productId":"7","score":0.8}]}`, rec.Body.String())
	assert.Equal(t, 12, deps.sim.topK)
	assert.Equal(t, []float32{0.1, 0.2}, deps.sim.got.Values)
}

func TestImageSearch_SpaceMismatch(t *testing.T) {
	deps := newDeps()
	deps.sim.err = e.Wrap("op", e.ErrEmbeddingSpaceMismatch)
	h := newTestRouter(t, deps, 10, 10)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/image_search", strings.NewReader(`{"embedding":[0.1],"topK":3}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 3, deps.sim.topK)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, newDeps(), 10, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
