package e

import (
	"fmt"
)

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки внешних сервисов (классификация, эмбеддинги, поиск)
	ErrRemoteStatus           = fmt.Errorf("remote service returned non-success status")
	ErrMalformedResponse      = fmt.Errorf("malformed response")
	ErrEmbeddingSpaceMismatch = fmt.Errorf("embedding space mismatch")
	ErrEmptyVectors           = fmt.Errorf("empty vectors")

	// Ошибки пайплайна визуального поиска
	ErrUploadFailed         = fmt.Errorf("image upload failed")
	ErrClassificationFailed = fmt.Errorf("image classification failed")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrImageTooLarge        = fmt.Errorf("image dimensions too large")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrInvalidJSON          = fmt.Errorf("invalid json body")
	ErrOrderIDRequired      = fmt.Errorf("orderId is required")
	ErrInvalidOrderID       = fmt.Errorf("invalid orderId")
	ErrInvalidOrderTotal    = fmt.Errorf("order has invalid total")
	ErrInvalidCurrency      = fmt.Errorf("invalid currency")
	ErrInvalidTopK          = fmt.Errorf("invalid topK")
	ErrInvalidEmbedding     = fmt.Errorf("invalid embedding")
	ErrMissingSignature     = fmt.Errorf("missing stripe-signature header")
	ErrInvalidSignature     = fmt.Errorf("invalid signature")
	ErrMalformedPayload     = fmt.Errorf("malformed webhook payload")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")

	// 404, 405, 409, 429
	ErrOrderNotFound       = fmt.Errorf("order not found")
	ErrMethodNotAllowed    = fmt.Errorf("method not allowed")
	ErrPaymentIntentExists = fmt.Errorf("payment intent already exists for order")
	ErrTooManyRequests     = fmt.Errorf("too many requests")

	// 500 Internal Server Error
	ErrInternalServerError  = fmt.Errorf("internal server error")
	ErrPaymentProvider      = fmt.Errorf("payment provider error")
	ErrPersistPaymentIntent = fmt.Errorf("failed to persist payment intent")
	ErrWebhookNotConfigured = fmt.Errorf("webhook not configured")
	ErrPaymentNotConfigured = fmt.Errorf("payment provider not configured")
)

// RemoteStatusError описывает ответ внешнего сервиса с неуспешным HTTP-статусом.
type RemoteStatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (r *RemoteStatusError) Error() string {
	if r.Body == "" {
		return fmt.Sprintf("%s: status %d", r.Endpoint, r.StatusCode)
	}

	return fmt.Sprintf("%s: status %d: %s", r.Endpoint, r.StatusCode, r.Body)
}

func (r *RemoteStatusError) Unwrap() error {
	return ErrRemoteStatus
}

// PersistIntentError: интент создан у провайдера, но не сохранён в заказе.
type PersistIntentError struct {
	IntentID string
	Err      error
}

func (p *PersistIntentError) Error() string {
	if p.Err == nil {
		return fmt.Sprintf("%s %s", ErrPersistPaymentIntent, p.IntentID)
	}

	return fmt.Sprintf("%s %s: %v", ErrPersistPaymentIntent, p.IntentID, p.Err)
}

func (p *PersistIntentError) Unwrap() []error {
	if p.Err == nil {
		return []error{ErrPersistPaymentIntent}
	}

	return []error{ErrPersistPaymentIntent, p.Err}
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Join оборачивает причину ошибки в доменную ошибку, сохраняя обе для errors.Is.
func Join(kind error, cause error) error {
	if cause == nil {
		return kind
	}

	return fmt.Errorf("%w: %w", kind, cause)
}

