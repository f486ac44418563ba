package quota

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/andrewpaige1/doomdeck-api/config"
	"github.com/andrewpaige1/doomdeck-api/models"
)

var _ = Describe("Limiter", func() {
	var (
		db      *gorm.DB
		limiter *Limiter
		ctx     context.Context
		now     time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = config.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", gonanoid.Must()))
		Expect(err).NotTo(HaveOccurred())

		now = time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
		limiter = NewLimiter(db, true, 3)
		limiter.now = func() time.Time { return now }
	})

	It("should never block when disabled", func() {
		disabled := NewLimiter(db, false, 1)
		for i := 0; i < 5; i++ {
			Expect(disabled.Allow(ctx, "user-1")).To(Succeed())
		}
		Expect(disabled.Enabled()).To(BeFalse())

		var count int64
		Expect(db.Model(&models.UsageCounter{}).Count(&count).Error).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("should not count anonymous requests", func() {
		Expect(limiter.Allow(ctx, "")).To(Succeed())
	})

	It("should reject the generation after the daily cap", func() {
		for i := 0; i < 3; i++ {
			Expect(limiter.Allow(ctx, "user-1")).To(Succeed(), "generation %d", i+1)
		}
		Expect(limiter.Allow(ctx, "user-1")).To(MatchError(ErrLimitReached))

		used, err := limiter.Used(ctx, "user-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(used).To(Equal(3))
	})

	It("should count users independently", func() {
		for i := 0; i < 3; i++ {
			Expect(limiter.Allow(ctx, "user-1")).To(Succeed())
		}
		Expect(limiter.Allow(ctx, "user-2")).To(Succeed())
	})

	It("should reset on the next UTC day", func() {
		for i := 0; i < 3; i++ {
			Expect(limiter.Allow(ctx, "user-1")).To(Succeed())
		}
		Expect(limiter.Allow(ctx, "user-1")).To(MatchError(ErrLimitReached))

		now = now.Add(time.Hour)
		Expect(limiter.Allow(ctx, "user-1")).To(Succeed())
	})

	It("should let subscribed users through without counting", func() {
		Expect(db.Create(&models.User{AuthID: "user-pro", SubscriptionStatus: models.SubscriptionActive}).Error).To(Succeed())
		for i := 0; i < 10; i++ {
			Expect(limiter.Allow(ctx, "user-pro")).To(Succeed())
		}
		used, err := limiter.Used(ctx, "user-pro")
		Expect(err).NotTo(HaveOccurred())
		Expect(used).To(BeZero())
	})

	It("should count users whose subscription was canceled", func() {
		Expect(db.Create(&models.User{AuthID: "user-lapsed", SubscriptionStatus: models.SubscriptionCanceled}).Error).To(Succeed())
		for i := 0; i < 3; i++ {
			Expect(limiter.Allow(ctx, "user-lapsed")).To(Succeed())
		}
		Expect(limiter.Allow(ctx, "user-lapsed")).To(MatchError(ErrLimitReached))
	})

	It("should tolerate a nil limiter", func() {
		var nilLimiter *Limiter
		Expect(nilLimiter.Allow(ctx, "user-1")).To(Succeed())
		Expect(nilLimiter.Enabled()).To(BeFalse())
		Expect(nilLimiter.DailyLimit()).To(BeZero())
	})
})
