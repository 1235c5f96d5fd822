package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jimlawless/whereami"
)

// ErrorResponse — тело ответа с ошибкой. Details заполняется только безопасным текстом.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewErrorResponse(code int, message string, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Error:   message,
		Details: details,
	}
}

// ToHTTPResponse сопоставляет ошибку со статусом и публичным сообщением.
func ToHTTPResponse(err error) (int, string) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	}

	return http.StatusInternalServerError, e.ErrInternalServerError.Error()
}

// Порядок важен: более конкретные ошибки идут раньше общих.
var errorStatuses = []struct {
	err    error
	status int
}{
	{e.ErrOrderIDRequired, http.StatusBadRequest},
	{e.ErrInvalidOrderID, http.StatusBadRequest},
	{e.ErrInvalidOrderTotal, http.StatusBadRequest},
	{e.ErrInvalidCurrency, http.StatusBadRequest},
	{e.ErrInvalidJSON, http.StatusBadRequest},
	{e.ErrInvalidTopK, http.StatusBadRequest},
	{e.ErrInvalidEmbedding, http.StatusBadRequest},
	{e.ErrEmbeddingSpaceMismatch, http.StatusBadRequest},
	{e.ErrMissingSignature, http.StatusBadRequest},
	{e.ErrInvalidSignature, http.StatusBadRequest},
	{e.ErrMalformedPayload, http.StatusBadRequest},
	{e.ErrExpectedMultipart, http.StatusBadRequest},
	{e.ErrStatusBadRequest, http.StatusBadRequest},
	{e.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
	{e.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{e.ErrOrderNotFound, http.StatusNotFound},
	{e.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
	{e.ErrPaymentIntentExists, http.StatusConflict},
	{e.ErrTooManyRequests, http.StatusTooManyRequests},
	{e.ErrUploadFailed, http.StatusBadGateway},
	{e.ErrClassificationFailed, http.StatusBadGateway},
	{e.ErrPaymentProvider, http.StatusInternalServerError},
	{e.ErrPersistPaymentIntent, http.StatusInternalServerError},
	{e.ErrWebhookNotConfigured, http.StatusInternalServerError},
	{e.ErrPaymentNotConfigured, http.StatusInternalServerError},
}

// publicDetails возвращает пояснение, которое можно показать клиенту.
func publicDetails(err error) string {
	var statusErr *e.RemoteStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Endpoint + " unavailable"
	}

	var persistErr *e.PersistIntentError
	if errors.As(err, &persistErr) && persistErr.IntentID != "" {
		return "payment intent " + persistErr.IntentID + " was created but not saved"
	}

	return ""
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	details := ""
	if code >= http.StatusInternalServerError {
		details = publicDetails(err)
	}

	WriteSuccess(w, code, NewErrorResponse(code, msg, details))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst. Неизвестные поля игнорируются.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), e.Join(e.ErrInvalidJSON, err))
	}

	return nil
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), e.Join(e.ErrStatusBadRequest, err))
	}

	return nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if fh.Size > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	return data, mimeType, nil
}
