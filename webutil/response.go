package webutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	HeaderContentType   = "Content-Type"
	ContentTypeJSONUTF8 = "application/json; charset=utf-8"
)

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	if err != nil {
		slog.Error("RespondWithJSON: failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(response)
}
