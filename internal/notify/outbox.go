package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/storage"
)

type outbox struct {
	store       storage.System
	render      *renderer
	cfg         Config
	logger      *slog.Logger
	maxListSize int32
	now         func() time.Time
}

// New creates a notifier that queues rendered messages in store.
func New(store storage.System, cfg Config, logger *slog.Logger, maxListSize int32) (System, error) {
	r, err := newRenderer(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	return &outbox{
		store:       store,
		render:      r,
		cfg:         cfg,
		logger:      logger.With("system", "notify"),
		maxListSize: maxListSize,
		now:         time.Now,
	}, nil
}

func (o *outbox) Handler() *Handler {
	return NewHandler(o, o.logger, o.maxListSize)
}

func (o *outbox) Send(ctx context.Context, req Request) (*Message, error) {
	a := req.Application

	to := slices.Clone(req.Email.Recipients)
	if len(to) == 0 && a.ApplicantEmail != "" {
		to = []string{a.ApplicantEmail}
	}
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	tctx := templateContext(a, req.StageName)

	subject, err := o.render.render(req.Email.Subject, tctx)
	if err != nil {
		return nil, err
	}
	body, err := o.render.render(req.Email.Template, tctx)
	if err != nil {
		return nil, err
	}

	created := o.now().UTC()
	msg := &Message{
		ID:            uuid.New(),
		ApplicationID: a.ID,
		StageID:       a.StageID,
		From:          o.cfg.From,
		To:            to,
		Subject:       strings.TrimSpace(subject),
		Body:          body,
		Template:      req.Email.Template,
		CreatedAt:     created,
	}
	msg.Key = o.key(a.ID, created, msg.ID)

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	if err := o.store.Upload(ctx, msg.Key, bytes.NewReader(data), "application/json"); err != nil {
		return nil, err
	}

	o.logger.Info("email queued", "key", msg.Key, "application_id", a.ID, "recipients", len(to))
	return msg, nil
}

func (o *outbox) List(ctx context.Context, applicationID *uuid.UUID, marker string, maxResults int32) (*storage.BlobList, error) {
	prefix := o.cfg.OutboxPrefix + "/"
	if applicationID != nil {
		prefix += applicationID.String() + "/"
	}
	return o.store.List(ctx, prefix, marker, maxResults)
}

func (o *outbox) Find(ctx context.Context, key string) (*Message, error) {
	if err := o.owned(key); err != nil {
		return nil, err
	}

	result, err := o.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	var msg Message
	if err := json.NewDecoder(result.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &msg, nil
}

func (o *outbox) Delete(ctx context.Context, key string) error {
	if err := o.owned(key); err != nil {
		return err
	}
	if err := o.store.Delete(ctx, key); err != nil {
		return err
	}
	o.logger.Info("email relayed", "key", key)
	return nil
}

// key lays messages out as <prefix>/<application>/<timestamp>-<id>.json so a
// prefix listing returns an application's messages oldest first.
func (o *outbox) key(applicationID uuid.UUID, at time.Time, id uuid.UUID) string {
	name := fmt.Sprintf("%s-%s.json", at.Format("20060102T150405.000000000Z"), id)
	return path.Join(o.cfg.OutboxPrefix, applicationID.String(), name)
}

func (o *outbox) owned(key string) error {
	if !strings.HasPrefix(key, o.cfg.OutboxPrefix+"/") || path.Ext(key) != ".json" {
		return fmt.Errorf("%w: %s", ErrInvalidMessage, key)
	}
	return nil
}
