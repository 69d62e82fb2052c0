package notify

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/stagehand/pkg/storage"
)

// Notification errors.
var (
	ErrNoRecipients    = errors.New("email has no recipients")
	ErrInvalidTemplate = errors.New("invalid email template")
	ErrInvalidMessage  = errors.New("outbox entry is not a message")
)

// MapHTTPStatus maps notification and outbox errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoRecipients), errors.Is(err, ErrInvalidTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidMessage):
		return http.StatusBadRequest
	default:
		return storage.MapHTTPStatus(err)
	}
}
