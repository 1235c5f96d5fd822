package http

import (
	"io"
	"net/http"

	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/jimlawless/whereami"
)

const signatureHeader = "Stripe-Signature"

// createPaymentIntentRequest — тело запроса на создание интента: id заказа и необязательная валюта.
type createPaymentIntentRequest struct {
	OrderID  string `json:"orderId"`
	Currency string `json:"currency,omitempty"`
}

type createPaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	OrderID         string `json:"orderId"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

type PaymentHandler struct {
	paymentUC usecase.PaymentUC
	logger    logger.Logger
}

func NewPaymentHandler(paymentUC usecase.PaymentUC, logger logger.Logger) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC, logger: logger}
}

// createPaymentIntent
//
//	@Summary		Создание платёжного интента для заказа
//	@Description	Сумма берётся из заказа. Повторный вызов для того же заказа возвращает 409.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createPaymentIntentRequest	true	"Заказ"
//	@Success		200		{object}	createPaymentIntentResponse
//	@Failure		400		{object}	ErrorResponse	"Некорректный заказ, сумма или валюта"
//	@Failure		404		{object}	ErrorResponse	"Заказ не найден"
//	@Failure		405		{object}	ErrorResponse	"Метод не поддерживается"
//	@Failure		409		{object}	ErrorResponse	"Интент уже создан"
//	@Failure		500		{object}	ErrorResponse	"Ошибка провайдера или сохранения"
//	@Router			/create_payment_intent [post]
func (h *PaymentHandler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 64 << 10

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req createPaymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warnf("%d create payment intent: %v", http.StatusBadRequest, err)
		WriteError(w, err)
		return
	}

	res, err := h.paymentUC.CreatePaymentIntent(r.Context(), usecase.NewCreatePaymentIntentReq(req.OrderID, req.Currency))
	if err != nil {
		h.logger.Warnf("create payment intent for order %q: %v", req.OrderID, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, createPaymentIntentResponse{
		ClientSecret:    res.ClientSecret,
		PaymentIntentID: res.PaymentIntentID,
		OrderID:         res.OrderID,
	})
}

// stripeWebhook
//
//	@Summary		Приём вебхуков Stripe
//	@Description	Проверяет подпись и сверяет статус оплаты заказа. Любое проверенное событие подтверждается ответом 200.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string	true	"t={ts},v1={hex}"
//	@Success		200					{object}	webhookResponse
//	@Failure		400					{object}	ErrorResponse	"Нет подписи, неверная подпись или тело"
//	@Failure		500					{object}	ErrorResponse	"Секрет вебхука не настроен"
//	@Router			/stripe_webhook [post]
func (h *PaymentHandler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 1 << 20

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		WriteError(w, e.Wrap(whereami.WhereAmI(), err))
		return
	}

	res, err := h.paymentUC.HandleWebhook(r.Context(), usecase.NewHandleWebhookReq(payload, r.Header.Get(signatureHeader)))
	if err != nil {
		h.logger.Warnf("webhook rejected: %v", err)
		WriteError(w, err)
		return
	}

	h.logger.Infof("webhook %s (%s): %s", res.EventID, res.Kind, res.Action)
	WriteSuccess(w, http.StatusOK, webhookResponse{Received: true})
}
