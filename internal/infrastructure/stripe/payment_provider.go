package stripe

import (
	"context"
	"errors"

	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

const metadataOrderID = "order_id"

// PaymentProvider создаёт платёжные интенты в Stripe.
type PaymentProvider struct {
	api *client.API
}

// NewPaymentProvider создаёт клиента Stripe. backends == nil означает боевые эндпоинты Stripe.
func NewPaymentProvider(secretKey string, backends *stripeapi.Backends) *PaymentProvider {
	api := &client.API{}
	api.Init(secretKey, backends)

	return &PaymentProvider{api: api}
}

func (p *PaymentProvider) CreatePaymentIntent(ctx context.Context, req *usecase.CreateProviderIntentReq) (*usecase.ProviderIntent, error) {
	const op = "PaymentProvider.CreatePaymentIntent"

	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(req.Amount),
		Currency: stripeapi.String(req.Currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, req.OrderID)
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) {
			return nil, e.Wrap(op, &e.RemoteStatusError{
				Endpoint:   "stripe.payment_intents",
				StatusCode: stripeErr.HTTPStatusCode,
				Body:       string(stripeErr.Code) + " " + stripeErr.Msg,
			})
		}
		return nil, e.Wrap(op, err)
	}

	if pi.ID == "" || pi.ClientSecret == "" {
		return nil, e.Wrap(op, e.ErrMalformedResponse)
	}

	return usecase.NewProviderIntent(pi.ID, pi.ClientSecret), nil
}
