package webutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/andrewpaige1/doomdeck-api/webutil"
)

func run(handler webutil.AppHandler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	webutil.MakeHandler(handler)(rec, httptest.NewRequest(http.MethodGet, "/thing", nil))
	return rec
}

var _ = Describe("MakeHandler", func() {
	It("should leave successful responses alone", func() {
		rec := run(func(w http.ResponseWriter, r *http.Request) error {
			webutil.RespondWithJSON(w, http.StatusCreated, map[string]int{"n": 1})
			return nil
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Header().Get(webutil.HeaderContentType)).To(Equal(webutil.ContentTypeJSONUTF8))
		Expect(rec.Body.String()).To(MatchJSON(`{"n":1}`))
	})

	It("should write the public message of an HTTPError", func() {
		rec := run(func(w http.ResponseWriter, r *http.Request) error {
			return webutil.ErrBadRequestWrap("Name is required", errors.New("validation: empty name"))
		})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(MatchJSON(`{"error":"Name is required"}`))
	})

	It("should find an HTTPError through wrapping", func() {
		rec := run(func(w http.ResponseWriter, r *http.Request) error {
			return fmt.Errorf("outer: %w", webutil.ErrTooManyRequestsWrap("Slow down", nil))
		})
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Body.String()).To(MatchJSON(`{"error":"Slow down"}`))
	})

	It("should map missing records to 404", func() {
		rec := run(func(w http.ResponseWriter, r *http.Request) error {
			return fmt.Errorf("load chat: %w", gorm.ErrRecordNotFound)
		})
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should hide unknown errors", func() {
		rec := run(func(w http.ResponseWriter, r *http.Request) error {
			return errors.New("pq: password authentication failed")
		})
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(MatchJSON(`{"error":"Internal Server Error"}`))
	})

	It("should not write twice when the handler already responded", func() {
		rec := run(func(w http.ResponseWriter, r *http.Request) error {
			webutil.RespondWithJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
			return errors.New("late failure")
		})
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(rec.Body.String()).To(MatchJSON(`{"ok":true}`))
	})
})

var _ = Describe("HTTPError", func() {
	It("should keep the cause for errors.Is", func() {
		cause := errors.New("boom")
		err := webutil.ErrInternalServerWrap("", cause)
		Expect(err.Code).To(Equal(http.StatusInternalServerError))
		Expect(err.Message).To(Equal("Internal Server Error"))
		Expect(errors.Is(err, cause)).To(BeTrue())
	})

	It("should default messages per status", func() {
		Expect(webutil.ErrNotFound("").Message).To(Equal("Resource not found"))
		Expect(webutil.ErrUnauthorized("").Code).To(Equal(http.StatusUnauthorized))
		Expect(webutil.ErrForbidden("").Code).To(Equal(http.StatusForbidden))
		Expect(webutil.ErrBadRequest("").Message).To(Equal("Bad Request"))
	})
})
