package usecase

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
)

// VISUAL SEARCH USECASE

// VisualSearchReq — запрос на запуск визуального поиска.
type VisualSearchReq struct {
	Picker ImagePicker
	TopK   int // 0 означает значение по умолчанию
}

// ProductInfo — DTO с информацией о продукте для выдачи поиска.
type ProductInfo struct {
	ID           int64
	Name         string
	CategoryName string
	Price        int64
	ImageURL     *string
}

// UploadImageReq — запрос на загрузку сжатого изображения в blob-хранилище.
type UploadImageReq struct {
	Data        []byte
	ContentType string
}

// VectorSearchReq — запрос к векторному индексу.
type VectorSearchReq struct {
	Vector []float32
	Model  string
	Limit  uint64
}

// PAYMENT USECASE

// CreatePaymentIntentReq — запрос на создание платёжного интента для заказа.
type CreatePaymentIntentReq struct {
	OrderID  string
	Currency string // необязательная валюта, используется если у заказа её нет
}

type CreatePaymentIntentRes struct {
	ClientSecret    string
	PaymentIntentID string
	OrderID         string
}

// HandleWebhookReq — сырое тело вебхука и заголовок подписи.
type HandleWebhookReq struct {
	Payload   []byte
	Signature string
}

// WebhookAction — чем закончилась обработка вебхука.
type WebhookAction string

const (
	WebhookActionApplied       WebhookAction = "applied"
	WebhookActionUnchanged     WebhookAction = "unchanged"
	WebhookActionIgnored       WebhookAction = "ignored"
	WebhookActionDuplicate     WebhookAction = "duplicate"
	WebhookActionOrderNotFound WebhookAction = "order_not_found"
	WebhookActionErrorLogged   WebhookAction = "error_logged"
)

type HandleWebhookRes struct {
	EventID string
	Kind    domain.PaymentEventKind
	Action  WebhookAction
}

// INFRASTRUCTURE

// CreateProviderIntentReq — параметры интента у платёжного провайдера.
type CreateProviderIntentReq struct {
	OrderID        string
	Amount         int64 // в минимальных единицах валюты
	Currency       string
	IdempotencyKey string
}

// ProviderIntent — интент, созданный провайдером.
type ProviderIntent struct {
	ID           string
	ClientSecret string
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
	Headers map[string]string
}

// OUTBOX

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
)

type OutboxEventType string

const (
	EventTypePaymentIntentCreated OutboxEventType = "order.payment_intent_created"
	EventTypePaymentStatusChanged OutboxEventType = "order.payment_status_changed"
)

// OutboxEvent — событие, записанное в одной транзакции с изменением заказа.
// Payload хранится как JSON-объект.
type OutboxEvent struct {
	ID          int64
	EventType   OutboxEventType
	AggregateID string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// MAPPERS

func NewVisualSearchReq(picker ImagePicker, topK int) *VisualSearchReq {
	return &VisualSearchReq{
		Picker: picker,
		TopK:   topK,
	}
}

func NewProductInfo(id int64, name string, category string, price int64, imageURL *string) ProductInfo {
	return ProductInfo{
		ID:           id,
		Name:         name,
		CategoryName: category,
		Price:        price,
		ImageURL:     imageURL,
	}
}

func NewUploadImageReq(data []byte, contentType string) *UploadImageReq {
	return &UploadImageReq{
		Data:        data,
		ContentType: contentType,
	}
}

func NewVectorSearchReq(vector []float32, model string, limit uint64) *VectorSearchReq {
	return &VectorSearchReq{
		Vector: vector,
		Model:  model,
		Limit:  limit,
	}
}

func NewCreatePaymentIntentReq(orderID string, currency string) *CreatePaymentIntentReq {
	return &CreatePaymentIntentReq{
		OrderID:  orderID,
		Currency: currency,
	}
}

func NewCreatePaymentIntentRes(clientSecret string, paymentIntentID string, orderID string) *CreatePaymentIntentRes {
	return &CreatePaymentIntentRes{
		ClientSecret:    clientSecret,
		PaymentIntentID: paymentIntentID,
		OrderID:         orderID,
	}
}

func NewHandleWebhookReq(payload []byte, signature string) *HandleWebhookReq {
	return &HandleWebhookReq{
		Payload:   payload,
		Signature: signature,
	}
}

// NewCreateProviderIntentReq формирует запрос к провайдеру с ключом идемпотентности,
// производным от заказа: повторный вызов для того же заказа не создаёт второй интент у провайдера.
func NewCreateProviderIntentReq(orderID string, amount int64, currency string) *CreateProviderIntentReq {
	return &CreateProviderIntentReq{
		OrderID:        orderID,
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: "order-" + orderID + "-payment-intent",
	}
}

func NewProviderIntent(id string, clientSecret string) *ProviderIntent {
	return &ProviderIntent{
		ID:           id,
		ClientSecret: clientSecret,
	}
}

func NewWriteRawMessageReq(key string, payload []byte, headers map[string]string) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
		Headers: headers,
	}
}

// NewOutboxEvent сериализует payload в JSON.
func NewOutboxEvent(eventType OutboxEventType, aggregateID string, payload map[string]any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     data,
		Status:      OutboxStatusPending,
	}, nil
}

// ToSearchMatch переводит продукт в совпадение выдачи с заданным score.
func (p ProductInfo) ToSearchMatch(score float64) domain.SearchMatch {
	name := p.Name
	price := p.Price

	return domain.SearchMatch{
		ProductID: strconv.FormatInt(p.ID, 10),
		Score:     score,
		Name:      &name,
		ImageURL:  p.ImageURL,
		Price:     &price,
	}
}
