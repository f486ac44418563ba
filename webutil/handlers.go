package webutil

import (
	"errors"
	"log/slog"
	"net/http"

	"gorm.io/gorm"
)

// AppHandler is a handler that reports failure by returning an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

// MakeHandler adapts an AppHandler to http.HandlerFunc. Returned errors are
// logged and turned into a JSON {"error": message} body.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracker := &headerTracker{ResponseWriter: w}
		err := handler(tracker, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		var statusCode int
		var publicMessage string

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			level := slog.LevelWarn
			if statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []any{"code", statusCode, "msg", publicMessage, "path", r.URL.Path, "method", r.Method}
			if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != publicMessage {
				attrs = append(attrs, "cause", cause)
			}
			slog.Log(r.Context(), level, "Error response", attrs...)

		case errors.Is(err, gorm.ErrRecordNotFound):
			statusCode = http.StatusNotFound
			publicMessage = msgNotFound
			slog.Info("Resource not found", "path", r.URL.Path, "method", r.Method, "error", err)

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = msgInternalServer
			slog.Error("Unhandled internal error", "path", r.URL.Path, "method", r.Method, "error", err)
		}

		if tracker.wroteHeader {
			slog.Warn("Handler returned error after writing response",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
			return
		}

		RespondWithError(w, statusCode, publicMessage)
	}
}
