// Package webhook проверяет подписи входящих вебхуков платёжного провайдера.
//
// Заголовок имеет вид "t=<unix timestamp>,v1=<hex hmac-sha256>". Подпись считается по строке
// "<timestamp>.<raw body>" общим секретом эндпоинта.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	timestampKey = "t"
	signatureKey = "v1"
)

// Header — разобранный заголовок подписи.
type Header struct {
	Timestamp  string
	Signatures []string
}

type options struct {
	tolerance time.Duration
	now       func() time.Time
}

// Option настраивает Verify.
type Option func(*options)

// WithTolerance включает проверку свежести метки времени. Ноль отключает проверку.
func WithTolerance(d time.Duration) Option {
	return func(o *options) {
		o.tolerance = d
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// ParseHeader разбирает заголовок подписи. Неизвестные ключи игнорируются.
// Возвращает false, если нет метки времени или ни одной подписи v1.
func ParseHeader(header string) (Header, bool) {
	var h Header
	if strings.TrimSpace(header) == "" {
		return h, false
	}

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || value == "" {
			continue
		}

		switch key {
		case timestampKey:
			h.Timestamp = value
		case signatureKey:
			h.Signatures = append(h.Signatures, value)
		}
	}

	if h.Timestamp == "" || len(h.Signatures) == 0 {
		return h, false
	}

	return h, true
}

// Verify проверяет подпись тела запроса.
// Сравнение выполняется за постоянное время: стоимость не зависит от позиции первого расхождения.
func Verify(payload []byte, header string, secret string, opts ...Option) bool {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if secret == "" {
		return false
	}

	h, ok := ParseHeader(header)
	if !ok {
		return false
	}

	if o.tolerance > 0 {
		ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
		if err != nil {
			return false
		}

		age := o.now().Sub(time.Unix(ts, 0))
		if age < 0 {
			age = -age
		}
		if age > o.tolerance {
			return false
		}
	}

	expected := []byte(ComputeSignature(h.Timestamp, payload, secret))

	matched := 0
	for _, sig := range h.Signatures {
		// ConstantTimeCompare сразу возвращает 0 при разной длине и XOR-накапливает байты при равной.
		matched |= subtle.ConstantTimeCompare(expected, []byte(sig))
	}

	return matched == 1
}

// ComputeSignature возвращает hex(HMAC-SHA256(secret, "<timestamp>.<payload>")).
func ComputeSignature(timestamp string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// Sign формирует заголовок подписи для payload в момент ts.
func Sign(payload []byte, secret string, ts time.Time) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	return timestampKey + "=" + timestamp + "," + signatureKey + "=" + ComputeSignature(timestamp, payload, secret)
}
