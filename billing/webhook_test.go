package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/andrewpaige1/doomdeck-api/billing"
	"github.com/andrewpaige1/doomdeck-api/config"
	"github.com/andrewpaige1/doomdeck-api/models"
)

const webhookSecret = "whsec_test_secret"

type fakeCustomers struct {
	emails map[string]string
	err    error
}

func (f *fakeCustomers) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.emails[customerID], nil
}

func newTestDB() *gorm.DB {
	db, err := config.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", gonanoid.Must()))
	Expect(err).NotTo(HaveOccurred())
	return db
}

func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func subscriptionEvent(eventType, subscriptionID, customerID, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"object": "event",
		"type": %q,
		"data": {"object": {"id": %q, "object": "subscription", "customer": %q, "status": %q}}
	}`, subscriptionID, eventType, subscriptionID, customerID, status))
}

var _ = Describe("WebhookProcessor", func() {
	var (
		db        *gorm.DB
		customers *fakeCustomers
		processor *billing.WebhookProcessor
		ctx       context.Context
	)

	apply := func(payload []byte) error {
		event, err := processor.Verify(payload, signPayload(webhookSecret, payload))
		Expect(err).NotTo(HaveOccurred())
		return processor.Apply(ctx, event)
	}

	findUser := func(email string) models.User {
		var user models.User
		Expect(db.Where("email = ?", email).First(&user).Error).To(Succeed())
		return user
	}

	BeforeEach(func() {
		ctx = context.Background()
		db = newTestDB()
		customers = &fakeCustomers{emails: map[string]string{"cus_1": "ada@example.com"}}
		processor = billing.NewWebhookProcessor(db, customers, webhookSecret)
	})

	Context("Verify", func() {
		It("should accept a correctly signed payload", func() {
			payload := subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active")
			event, err := processor.Verify(payload, signPayload(webhookSecret, payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(event.Type)).To(Equal(billing.EventSubscriptionCreated))
		})

		It("should reject a payload signed with another secret", func() {
			payload := subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active")
			_, err := processor.Verify(payload, signPayload("whsec_other", payload))
			Expect(err).To(MatchError(billing.ErrInvalidSignature))
		})

		It("should reject a tampered payload", func() {
			payload := subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active")
			signature := signPayload(webhookSecret, payload)
			tampered := subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "trialing")
			_, err := processor.Verify(tampered, signature)
			Expect(err).To(MatchError(billing.ErrInvalidSignature))
		})

		It("should reject everything when no secret is configured", func() {
			payload := subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active")
			_, err := billing.NewWebhookProcessor(db, customers, "").Verify(payload, signPayload("", payload))
			Expect(err).To(MatchError(billing.ErrInvalidSignature))
		})
	})

	Context("Apply", func() {
		It("should create the user on subscription created", func() {
			Expect(apply(subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active"))).To(Succeed())

			user := findUser("ada@example.com")
			Expect(user.StripeCustomerID).To(Equal("cus_1"))
			Expect(user.SubscriptionID).To(Equal("sub_1"))
			Expect(user.SubscriptionStatus).To(Equal("active"))
			Expect(user.UpdatedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})

		It("should merge into the existing user without touching identity fields", func() {
			Expect(db.Create(&models.User{AuthID: "auth0|ada", Email: "ada@example.com", Nickname: "ada"}).Error).To(Succeed())

			Expect(apply(subscriptionEvent(billing.EventSubscriptionUpdated, "sub_2", "cus_1", "past_due"))).To(Succeed())

			var count int64
			Expect(db.Model(&models.User{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))

			user := findUser("ada@example.com")
			Expect(user.AuthID).To(Equal("auth0|ada"))
			Expect(user.Nickname).To(Equal("ada"))
			Expect(user.SubscriptionID).To(Equal("sub_2"))
			Expect(user.SubscriptionStatus).To(Equal("past_due"))
		})

		It("should produce the same state when an event is redelivered", func() {
			payload := subscriptionEvent(billing.EventSubscriptionUpdated, "sub_1", "cus_1", "active")
			Expect(apply(payload)).To(Succeed())
			Expect(apply(payload)).To(Succeed())

			var count int64
			Expect(db.Model(&models.User{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
			Expect(findUser("ada@example.com").SubscriptionStatus).To(Equal("active"))
		})

		It("should mark the subscription canceled on delete regardless of prior state", func() {
			Expect(apply(subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active"))).To(Succeed())
			Expect(apply(subscriptionEvent(billing.EventSubscriptionDeleted, "sub_1", "cus_1", "active"))).To(Succeed())

			user := findUser("ada@example.com")
			Expect(user.SubscriptionStatus).To(Equal(models.SubscriptionCanceled))
			Expect(user.SubscriptionID).To(Equal("sub_1"))
		})

		It("should create a canceled user when delete arrives first", func() {
			Expect(apply(subscriptionEvent(billing.EventSubscriptionDeleted, "sub_9", "cus_1", "canceled"))).To(Succeed())
			Expect(findUser("ada@example.com").SubscriptionStatus).To(Equal(models.SubscriptionCanceled))
		})

		It("should acknowledge other event types without writing", func() {
			payload := []byte(`{"id":"evt_x","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)
			Expect(apply(payload)).To(Succeed())

			var count int64
			Expect(db.Model(&models.User{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})

		It("should skip customers without an email", func() {
			Expect(apply(subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_unknown", "active"))).To(Succeed())

			var count int64
			Expect(db.Model(&models.User{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})

		It("should fail when the customer lookup fails", func() {
			customers.err = errors.New("stripe unavailable")
			err := apply(subscriptionEvent(billing.EventSubscriptionCreated, "sub_1", "cus_1", "active"))
			Expect(err).To(MatchError(ContainSubstring("stripe unavailable")))
		})

		It("should fail when the subscription has no customer", func() {
			payload := []byte(`{"id":"evt_y","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","object":"subscription","status":"active"}}}`)
			Expect(apply(payload)).To(HaveOccurred())
		})
	})
})
