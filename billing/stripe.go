package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// CustomerLookup resolves a payment-provider customer to its email.
type CustomerLookup interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// CheckoutCreator opens hosted checkout sessions.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, priceID, idempotencyKey string) (string, error)
}

// StripeClient talks to the Stripe API for checkout and customer lookups.
type StripeClient struct {
	api     *client.API
	baseURL string
}

func NewStripeClient(secretKey, baseURL string) *StripeClient {
	return &StripeClient{
		api:     client.New(secretKey, nil),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *StripeClient) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	customer, err := s.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve customer %s: %w", customerID, err)
	}
	if customer.Deleted {
		return "", nil
	}
	return customer.Email, nil
}

// CreateCheckoutSession starts a card subscription checkout for one unit of
// priceID. An empty idempotencyKey is replaced with a fresh one.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, priceID, idempotencyKey string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.baseURL + "/"),
	}
	params.Context = ctx
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	params.SetIdempotencyKey(idempotencyKey)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.ID, nil
}
