package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus — статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusUnset          PaymentStatus = "unset"
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusPaid           PaymentStatus = "paid"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusAmountMismatch PaymentStatus = "amount_mismatch" // ждёт ручной проверки
)

// OrderStatus — статус заказа. Остальные значения принадлежат сервису заказов.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order — подмножество полей заказа, с которыми работает оплата.
type Order struct {
	ID              string
	TotalAmount     decimal.Decimal // в минимальных единицах валюты
	Currency        string
	PaymentIntentID *string
	PaymentStatus   PaymentStatus
	Status          OrderStatus
	UpdatedAt       *time.Time
}

// HasPaymentIntent сообщает, создан ли уже платёжный интент. Поле записывается один раз.
func (o *Order) HasPaymentIntent() bool {
	return o.PaymentIntentID != nil && *o.PaymentIntentID != ""
}

// ChargeAmount возвращает сумму списания в минимальных единицах, округлённую до целого.
// ok == false, если сумма не положительная.
func (o *Order) ChargeAmount() (int64, bool) {
	amount := o.TotalAmount.Round(0)
	if !amount.IsPositive() {
		return 0, false
	}

	return amount.IntPart(), true
}

// PaymentTransition — результат применения события оплаты к заказу.
type PaymentTransition struct {
	PaymentStatus PaymentStatus
	Status        OrderStatus
	Changed       bool
}

// ApplyPaymentEvent вычисляет новое состояние заказа по событию провайдера.
// Повторное применение того же события даёт то же состояние с Changed == false.
func (o *Order) ApplyPaymentEvent(ev *PaymentEvent) PaymentTransition {
	next := PaymentTransition{PaymentStatus: o.PaymentStatus, Status: o.Status}

	switch ev.Kind {
	case PaymentEventSucceeded:
		charge, ok := o.ChargeAmount()
		if ok && charge == ev.Amount {
			next.PaymentStatus, next.Status = PaymentStatusPaid, OrderStatusConfirmed
		} else {
			next.PaymentStatus, next.Status = PaymentStatusAmountMismatch, OrderStatusPending
		}
	case PaymentEventFailed:
		// paid и amount_mismatch терминальны: запоздавшее событие об ошибке их не перезаписывает.
		if o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusAmountMismatch {
			return next
		}
		next.PaymentStatus, next.Status = PaymentStatusFailed, OrderStatusPending
	default:
		return next
	}

	next.Changed = next.PaymentStatus != o.PaymentStatus || next.Status != o.Status
	return next
}
