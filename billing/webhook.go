package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"
)

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// WebhookProcessor verifies Stripe events and mirrors subscription state
// onto users, keyed by the customer's email.
type WebhookProcessor struct {
	db        *gorm.DB
	customers CustomerLookup
	secret    string
	now       func() time.Time
}

func NewWebhookProcessor(db *gorm.DB, customers CustomerLookup, secret string) *WebhookProcessor {
	return &WebhookProcessor{
		db:        db,
		customers: customers,
		secret:    secret,
		now:       time.Now,
	}
}

// Verify checks the Stripe-Signature header against the shared secret and
// decodes the event.
func (p *WebhookProcessor) Verify(payload []byte, signature string) (stripe.Event, error) {
	if p.secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// Apply writes the subscription fields an event implies. Redelivered events
// overwrite the same fields with the same values.
func (p *WebhookProcessor) Apply(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		sub, err := decodeSubscription(event)
		if err != nil {
			return err
		}
		email, err := p.customerEmail(ctx, sub)
		if err != nil || email == "" {
			return err
		}
		return p.upsertByEmail(ctx, email, map[string]any{
			"stripe_customer_id":  sub.Customer.ID,
			"subscription_status": string(sub.Status),
			"subscription_id":     sub.ID,
			"updated_at":          p.now().UTC(),
		})

	case EventSubscriptionDeleted:
		sub, err := decodeSubscription(event)
		if err != nil {
			return err
		}
		email, err := p.customerEmail(ctx, sub)
		if err != nil || email == "" {
			return err
		}
		return p.upsertByEmail(ctx, email, map[string]any{
			"subscription_status": models.SubscriptionCanceled,
			"updated_at":          p.now().UTC(),
		})

	default:
		slog.Debug("Apply: ignoring webhook event", "type", event.Type, "id", event.ID)
		return nil
	}
}

func decodeSubscription(event stripe.Event) (*stripe.Subscription, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s: missing data", event.ID)
	}
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("event %s: decode subscription: %w", event.ID, err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil, fmt.Errorf("event %s: subscription %s has no customer", event.ID, sub.ID)
	}
	return &sub, nil
}

func (p *WebhookProcessor) customerEmail(ctx context.Context, sub *stripe.Subscription) (string, error) {
	email, err := p.customers.CustomerEmail(ctx, sub.Customer.ID)
	if err != nil {
		return "", err
	}
	if email == "" {
		slog.Warn("Apply: customer has no email, skipping", "customer", sub.Customer.ID, "subscription", sub.ID)
	}
	return email, nil
}

// upsertByEmail merges fields into every user with that email, creating the
// user first when none exists.
func (p *WebhookProcessor) upsertByEmail(ctx context.Context, email string, fields map[string]any) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("email = ?", email).Updates(fields)
		if result.Error != nil {
			return fmt.Errorf("update user %s: %w", email, result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(&models.User{Email: email}).Error; err != nil {
			return fmt.Errorf("create user %s: %w", email, err)
		}
		if err := tx.Model(&models.User{}).Where("email = ?", email).Updates(fields).Error; err != nil {
			return fmt.Errorf("update user %s: %w", email, err)
		}
		slog.Info("Apply: created user from billing event", "email", email)
		return nil
	})
}
