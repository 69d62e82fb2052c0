// Package notify delivers send_email actions. Templates are rendered with
// pongo2 and the resulting messages are written as JSON documents to the
// blob storage outbox, where an external mail relay picks them up.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/pkg/storage"
)

// Request is one email a matched rule asked for.
type Request struct {
	Email       engine.EmailRequest
	Application applications.Application
	StageName   string
}

// Message is a rendered email waiting in the outbox.
type Message struct {
	ID            uuid.UUID  `json:"id"`
	Key           string     `json:"key"`
	ApplicationID uuid.UUID  `json:"application_id"`
	StageID       *uuid.UUID `json:"stage_id,omitempty"`
	From          string     `json:"from"`
	To            []string   `json:"to"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Template      string     `json:"template"`
	CreatedAt     time.Time  `json:"created_at"`
}

// System renders notifications and manages the outbox.
type System interface {
	Handler() *Handler

	// Send renders req and queues it in the outbox.
	Send(ctx context.Context, req Request) (*Message, error)
	// List returns queued messages, optionally limited to one application.
	List(ctx context.Context, applicationID *uuid.UUID, marker string, maxResults int32) (*storage.BlobList, error)
	Find(ctx context.Context, key string) (*Message, error)
	// Delete removes a message from the outbox once it has been relayed.
	Delete(ctx context.Context, key string) error
}
