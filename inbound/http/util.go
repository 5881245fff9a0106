package http

import (
	"context"
	"encoding/json"
	"motorserve/booking"
	"motorserve/common/constant"
	"motorserve/common/errs"
	"motorserve/model"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var message string
	var data any
	if httpErr, ok := err.(*errs.HttpError); ok {
		message = httpErr.Message
		data = httpErr.Data
		w.WriteHeader(httpErr.Code)
	} else if validationErr, ok := err.(validator.ValidationErrors); ok {
		message = "Validation failed"
		w.WriteHeader(http.StatusBadRequest)

		validationErrors := make(map[string]string)
		for _, fieldErr := range validationErr {
			fieldName := fieldErr.Field()
			validationErrors[fieldName] = fieldErr.Tag()
		}

		data = validationErrors
	} else {
		message = "Internal Server Error"
		w.WriteHeader(500)
	}

	errorResponse := model.ErrorResponse{Error: message, Data: data}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sessionID returns the caller's session, issuing a new cookie when the
// request carries none or an id this server did not mint.
func sessionID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if cookie, err := r.Cookie(constant.BookingSessionCookie); err == nil {
		if _, err := ulid.ParseStrict(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := ulid.Make().String()
	http.SetCookie(w, &http.Cookie{
		Name:     constant.BookingSessionCookie,
		Value:    id,
		Path:     constant.BookingSessionCookieDefaultPath,
		MaxAge:   int(constant.BookingFormDefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func toStateResponse(snap booking.Snapshot, whatsAppURL string) model.BookingStateResponse {
	resp := model.BookingStateResponse{
		Draft:       booking.ToModel(snap.Draft),
		Sending:     snap.Sending,
		WhatsAppURL: whatsAppURL,
	}

	if !snap.Status.IsNone() {
		resp.Status = &model.BookingStatus{Type: string(snap.Status.Kind), Message: snap.Status.Message}
	}

	return resp
}

// linkCollector captures the deep link so the response can open it in a new
// browsing context on the client.
type linkCollector struct {
	mu  sync.Mutex
	url string
}

func (c *linkCollector) Open(_ context.Context, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
}

func (c *linkCollector) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}
