package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	gonanoid "github.com/matoous/go-nanoid/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/andrewpaige1/doomdeck-api/auth"
	"github.com/andrewpaige1/doomdeck-api/config"
	"github.com/andrewpaige1/doomdeck-api/middleware"
	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/andrewpaige1/doomdeck-api/utils"
)

const secret = "middleware-test-secret"

var _ = Describe("Authentication", func() {
	var (
		db      *gorm.DB
		handler http.Handler
		seen    struct {
			authID string
			user   *models.User
			calls  int
		}
	)

	request := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/thing", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	mint := func(subject, email, nickname string) string {
		token, err := auth.CreateToken(secret, auth.TokenRequest{Subject: subject, Email: email, Nickname: nickname})
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	BeforeEach(func() {
		var err error
		db, err = config.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", gonanoid.Must()))
		Expect(err).NotTo(HaveOccurred())

		env := &config.Environment{}
		env.Auth.JWTSecret = secret
		ensureValidToken, err := middleware.EnsureValidToken(env)
		Expect(err).NotTo(HaveOccurred())

		seen.authID, seen.user, seen.calls = "", nil, 0
		inner := func(w http.ResponseWriter, r *http.Request) {
			seen.calls++
			seen.authID, _ = utils.GetAuthID(r)
			seen.user, _ = utils.GetUser(r)
			w.WriteHeader(http.StatusNoContent)
		}
		handler = ensureValidToken(middleware.SyncUserMiddleware(db)(inner))
	})

	It("should let anonymous requests through", func() {
		rec := request("")
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(seen.authID).To(BeEmpty())
		Expect(seen.user).To(BeNil())
	})

	It("should reject a bad token", func() {
		rec := request("not-a-jwt")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(MatchJSON(`{"error":"Failed to validate JWT."}`))
		Expect(seen.calls).To(BeZero())
	})

	It("should reject a token signed with another key", func() {
		token, err := auth.CreateToken("someone-else", auth.TokenRequest{Subject: "dev|eve"})
		Expect(err).NotTo(HaveOccurred())
		Expect(request(token).Code).To(Equal(http.StatusUnauthorized))
	})

	It("should create the user on first sight and attach it", func() {
		rec := request(mint("dev|ada", "ada@example.com", "ada"))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(seen.authID).To(Equal("dev|ada"))
		Expect(seen.user).NotTo(BeNil())
		Expect(seen.user.Email).To(Equal("ada@example.com"))

		var count int64
		Expect(db.Model(&models.User{}).Where("auth_id = ?", "dev|ada").Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})

	It("should update identity fields but keep subscription state", func() {
		Expect(db.Create(&models.User{AuthID: "dev|ada", Nickname: "old", SubscriptionStatus: "active"}).Error).To(Succeed())

		Expect(request(mint("dev|ada", "ada@example.com", "ada")).Code).To(Equal(http.StatusNoContent))

		var user models.User
		Expect(db.Where("auth_id = ?", "dev|ada").First(&user).Error).To(Succeed())
		Expect(user.Nickname).To(Equal("ada"))
		Expect(user.Email).To(Equal("ada@example.com"))
		Expect(user.SubscriptionStatus).To(Equal("active"))
		Expect(seen.user.Subscribed()).To(BeTrue())
	})

	It("should link a subscription recorded before the first sign-in", func() {
		Expect(db.Create(&models.User{Email: "ada@example.com", StripeCustomerID: "cus_1", SubscriptionStatus: "active"}).Error).To(Succeed())

		Expect(request(mint("auth0|ada", "ada@example.com", "ada")).Code).To(Equal(http.StatusNoContent))
		Expect(seen.user).NotTo(BeNil())
		Expect(seen.user.Subscribed()).To(BeTrue())

		var users []models.User
		Expect(db.Where("email = ?", "ada@example.com").Find(&users).Error).To(Succeed())
		Expect(users).To(HaveLen(1))
		Expect(users[0].AuthID).To(Equal("auth0|ada"))
		Expect(users[0].Nickname).To(Equal("ada"))
		Expect(users[0].StripeCustomerID).To(Equal("cus_1"))

		Expect(request(mint("auth0|ada", "ada@example.com", "ada")).Code).To(Equal(http.StatusNoContent))
		var count int64
		Expect(db.Model(&models.User{}).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})

	It("should not take over a row that already belongs to someone else", func() {
		Expect(db.Create(&models.User{AuthID: "auth0|other", Email: "ada@example.com", SubscriptionStatus: "active"}).Error).To(Succeed())

		Expect(request(mint("auth0|ada", "ada@example.com", "ada")).Code).To(Equal(http.StatusNoContent))
		Expect(seen.user.AuthID).To(Equal("auth0|ada"))
		Expect(seen.user.Subscribed()).To(BeFalse())

		var other models.User
		Expect(db.Where("auth_id = ?", "auth0|other").First(&other).Error).To(Succeed())
		Expect(other.SubscriptionStatus).To(Equal("active"))
	})

	It("should make every request anonymous when no verifier is configured", func() {
		passthrough, err := middleware.EnsureValidToken(&config.Environment{})
		Expect(err).NotTo(HaveOccurred())
		handler = passthrough(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetAuthID(r)
			Expect(ok).To(BeFalse())
			w.WriteHeader(http.StatusNoContent)
		}))
		Expect(request("anything").Code).To(Equal(http.StatusNoContent))
	})
})
