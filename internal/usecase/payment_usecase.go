package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/DRSN-tech/visual-commerce/pkg/webhook"
	"github.com/google/uuid"
)

const fallbackCurrency = "usd"

var currencyRe = regexp.MustCompile(`^[a-z]{3}$`)

// Исходы создания интента для метрик
const (
	paymentIntentCreated  = "created"
	paymentIntentConflict = "conflict"
	paymentIntentRejected = "rejected"
	paymentIntentFailed   = "failed"
)

// PaymentConfig — настройки оплаты, общие для создания интентов и вебхуков.
type PaymentConfig struct {
	WebhookSecret    string
	WebhookTolerance time.Duration // 0 отключает проверку свежести подписи
	DefaultCurrency  string
}

// PaymentUseCase создаёт платёжные интенты и сверяет заказы по вебхукам провайдера.
type PaymentUseCase struct {
	orderRepo     OrderRepository
	outboxRepo    OutboxRepository
	webhookEvents WebhookEventRepository
	txManager     TxManager
	provider      PaymentProvider
	cfg           PaymentConfig
	metrics       Metrics
	logger        logger.Logger
	now           func() time.Time
}

func NewPaymentUC(
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	webhookEvents WebhookEventRepository,
	txManager TxManager,
	provider PaymentProvider,
	cfg PaymentConfig,
	metrics Metrics,
	logger logger.Logger,
) *PaymentUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &PaymentUseCase{
		orderRepo:     orderRepo,
		outboxRepo:    outboxRepo,
		webhookEvents: webhookEvents,
		txManager:     txManager,
		provider:      provider,
		cfg:           cfg,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// CreatePaymentIntent создаёт интент на сумму, хранящуюся в заказе. Сумма из запроса не принимается.
// Для заказа создаётся не больше одного интента: повторный вызов возвращает e.ErrPaymentIntentExists.
func (p *PaymentUseCase) CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentReq) (*CreatePaymentIntentRes, error) {
	const op = "PaymentUseCase.CreatePaymentIntent"

	if p.provider == nil {
		return nil, e.Wrap(op, e.ErrPaymentNotConfigured)
	}

	// Валидация
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		p.metrics.ObservePaymentIntent(paymentIntentRejected)
		return nil, e.Wrap(op, e.ErrOrderIDRequired)
	}
	if _, err := uuid.Parse(orderID); err != nil {
		p.metrics.ObservePaymentIntent(paymentIntentRejected)
		return nil, e.Wrap(op, e.ErrInvalidOrderID)
	}

	order, err := p.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		p.metrics.ObservePaymentIntent(paymentIntentFailed)
		return nil, e.Wrap(op, err)
	}

	if order.HasPaymentIntent() {
		p.metrics.ObservePaymentIntent(paymentIntentConflict)
		return nil, e.Wrap(op, e.ErrPaymentIntentExists)
	}

	amount, ok := order.ChargeAmount()
	if !ok {
		p.metrics.ObservePaymentIntent(paymentIntentRejected)
		return nil, e.Wrap(op, e.ErrInvalidOrderTotal)
	}

	currency, err := p.resolveCurrency(order.Currency, req.Currency)
	if err != nil {
		p.metrics.ObservePaymentIntent(paymentIntentRejected)
		return nil, e.Wrap(op, err)
	}

	// Интент у провайдера
	intent, err := p.provider.CreatePaymentIntent(ctx, NewCreateProviderIntentReq(orderID, amount, currency))
	if err != nil {
		p.metrics.ObservePaymentIntent(paymentIntentFailed)
		return nil, e.Wrap(op, e.Join(e.ErrPaymentProvider, err))
	}

	// Сохранение id интента и события в одной транзакции
	err = p.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := p.orderRepo.AttachPaymentIntent(ctx, orderID, intent.ID); err != nil {
			return err
		}

		event, err := NewOutboxEvent(EventTypePaymentIntentCreated, orderID, map[string]any{
			"orderId":         orderID,
			"paymentIntentId": intent.ID,
			"amount":          amount,
			"currency":        currency,
		})
		if err != nil {
			return err
		}

		_, err = p.outboxRepo.Create(ctx, event)
		return err
	})
	if err != nil {
		if errors.Is(err, e.ErrPaymentIntentExists) {
			// Параллельный запрос успел записать свой интент раньше
			p.logger.Warnf("order %s got a payment intent concurrently, intent %s is not attached", orderID, intent.ID)
			p.metrics.ObservePaymentIntent(paymentIntentConflict)
			return nil, e.Wrap(op, err)
		}

		p.logger.Errorf(err, "failed to persist payment intent %s for order %s", intent.ID, orderID)
		p.metrics.ObservePaymentIntent(paymentIntentFailed)
		return nil, e.Wrap(op, &e.PersistIntentError{IntentID: intent.ID, Err: err})
	}

	p.metrics.ObservePaymentIntent(paymentIntentCreated)
	return NewCreatePaymentIntentRes(intent.ClientSecret, intent.ID, orderID), nil
}

// resolveCurrency: валюта заказа, затем валюта из запроса, затем валюта по умолчанию.
func (p *PaymentUseCase) resolveCurrency(orderCurrency string, requested string) (string, error) {
	currency := strings.ToLower(strings.TrimSpace(orderCurrency))
	if currency == "" {
		currency = strings.ToLower(strings.TrimSpace(requested))
	}
	if currency == "" {
		currency = p.cfg.DefaultCurrency
	}
	if currency == "" {
		currency = fallbackCurrency
	}

	if !currencyRe.MatchString(currency) {
		return "", e.ErrInvalidCurrency
	}

	return currency, nil
}

// HandleWebhook проверяет подпись и применяет событие к заказу.
// Ошибки проверки и разбора возвращаются до любых изменений заказа. Ошибки инфраструктуры
// после проверки подписи только логируются: провайдер получает подтверждение и не повторяет доставку.
func (p *PaymentUseCase) HandleWebhook(ctx context.Context, req *HandleWebhookReq) (*HandleWebhookRes, error) {
	const op = "PaymentUseCase.HandleWebhook"

	if p.cfg.WebhookSecret == "" {
		return nil, e.Wrap(op, e.ErrWebhookNotConfigured)
	}
	if strings.TrimSpace(req.Signature) == "" {
		return nil, e.Wrap(op, e.ErrMissingSignature)
	}

	ok := webhook.Verify(req.Payload, req.Signature, p.cfg.WebhookSecret,
		webhook.WithTolerance(p.cfg.WebhookTolerance),
		webhook.WithClock(p.now),
	)
	if !ok {
		p.metrics.ObserveWebhook(domain.PaymentEventUnrecognized.String(), "invalid_signature")
		return nil, e.Wrap(op, e.ErrInvalidSignature)
	}

	event, err := parsePaymentEvent(req.Payload)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &HandleWebhookRes{EventID: event.ID, Kind: event.Kind}
	defer func() {
		p.metrics.ObserveWebhook(res.Kind.String(), string(res.Action))
	}()

	if event.Kind == domain.PaymentEventUnrecognized {
		p.logger.Debugf("ignoring webhook event %s of type %s", event.ID, event.Type)
		res.Action = WebhookActionIgnored
		return res, nil
	}

	if event.ID != "" && p.isProcessed(ctx, event.ID) {
		p.logger.Infof("webhook event %s already processed", event.ID)
		res.Action = WebhookActionDuplicate
		return res, nil
	}

	action, err := p.reconcile(ctx, event)
	if err != nil {
		p.logger.Errorf(e.Wrap(op, err), "failed to reconcile payment intent %s from event %s", event.PaymentIntentID, event.ID)
		res.Action = WebhookActionErrorLogged
		return res, nil
	}
	res.Action = action

	if p.webhookEvents != nil && event.ID != "" {
		if err := p.webhookEvents.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Warnf("failed to mark webhook event %s as processed: %v", event.ID, e.Wrap(op, err))
		}
	}

	return res, nil
}

// isProcessed не блокирует обработку при недоступности хранилища: переходы статусов идемпотентны.
func (p *PaymentUseCase) isProcessed(ctx context.Context, eventID string) bool {
	const op = "PaymentUseCase.isProcessed"

	if p.webhookEvents == nil {
		return false
	}

	processed, err := p.webhookEvents.IsProcessed(ctx, eventID)
	if err != nil {
		p.logger.Warnf("failed to check webhook event %s: %v", eventID, e.Wrap(op, err))
		return false
	}

	return processed
}

// reconcile ищет заказ по сохранённому id интента (не по данным из события) и переводит его статусы.
func (p *PaymentUseCase) reconcile(ctx context.Context, event *domain.PaymentEvent) (WebhookAction, error) {
	action := WebhookActionUnchanged

	err := p.txManager.WithinTx(ctx, func(ctx context.Context) error {
		order, err := p.orderRepo.GetByPaymentIntentIDForUpdate(ctx, event.PaymentIntentID)
		if errors.Is(err, e.ErrOrderNotFound) {
			p.logger.Warnf("no order for payment intent %s (event %s)", event.PaymentIntentID, event.ID)
			action = WebhookActionOrderNotFound
			return nil
		}
		if err != nil {
			return err
		}

		next := order.ApplyPaymentEvent(event)
		if !next.Changed {
			return nil
		}

		if next.PaymentStatus == domain.PaymentStatusAmountMismatch {
			charge, _ := order.ChargeAmount()
			p.logger.Warnf("amount mismatch for order %s: expected %d, provider reported %d", order.ID, charge, event.Amount)
		}

		if err := p.orderRepo.UpdatePaymentStatus(ctx, order.ID, next.PaymentStatus, next.Status); err != nil {
			return err
		}

		outboxEvent, err := NewOutboxEvent(EventTypePaymentStatusChanged, order.ID, map[string]any{
			"orderId":         order.ID,
			"paymentIntentId": event.PaymentIntentID,
			"eventId":         event.ID,
			"paymentStatus":   string(next.PaymentStatus),
			"status":          string(next.Status),
			"amount":          event.Amount,
		})
		if err != nil {
			return err
		}

		if _, err := p.outboxRepo.Create(ctx, outboxEvent); err != nil {
			return err
		}

		action = WebhookActionApplied
		return nil
	})
	if err != nil {
		return "", err
	}

	return action, nil
}
