package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ariefcatur/widget-store/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Status: code, Message: msg}})
}

func statusOf(k orders.Kind) int {
	switch k {
	case orders.KindValidation:
		return http.StatusBadRequest
	case orders.KindUnauthorized:
		return http.StatusUnauthorized
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindIntegrity, orders.KindInsufficientQuantity, orders.KindPayment, orders.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the API's error body. Internal errors are
// logged and shown without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(orders.KindOf(err))
	if code == http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeMessage(w, code, orders.MessageOf(err))
}
