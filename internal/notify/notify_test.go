package notify_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/pkg/lifecycle"
	"github.com/JaimeStill/stagehand/pkg/storage"
)

type blob struct {
	data        []byte
	contentType string
}

type memStore struct {
	mu    sync.Mutex
	blobs map[string]blob
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string]blob)}
}

func (m *memStore) Start(*lifecycle.Coordinator) error { return nil }

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob{data: data, contentType: contentType}
	return nil
}

func (m *memStore) Download(_ context.Context, key string) (*storage.BlobResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.BlobResult{
		Body:          io.NopCloser(bytes.NewReader(b.data)),
		ContentType:   b.contentType,
		ContentLength: int64(len(b.data)),
	}, nil
}

func (m *memStore) Find(_ context.Context, key string) (*storage.BlobMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.BlobMeta{Key: key, ContentType: b.contentType, ContentLength: int64(len(b.data))}, nil
}

func (m *memStore) List(_ context.Context, prefix, _ string, _ int32) (*storage.BlobList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := &storage.BlobList{Blobs: []storage.BlobMeta{}}
	for key, b := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			list.Blobs = append(list.Blobs, storage.BlobMeta{Key: key, ContentType: b.contentType})
		}
	}
	slices.SortFunc(list.Blobs, func(a, b storage.BlobMeta) int { return strings.Compare(a.Key, b.Key) })
	return list, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newNotifier(t *testing.T, store storage.System, dir string) notify.System {
	t.Helper()
	cfg := notify.Config{From: "review@example.org", TemplateDir: dir, OutboxPrefix: "outbox"}
	sys, err := notify.New(store, cfg, discard(), 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sys
}

func applicant() applications.Application {
	stage := uuid.New()
	return applications.Application{
		ID:             uuid.New(),
		WorkflowID:     uuid.New(),
		StageID:        &stage,
		ApplicantName:  "Ada Lovelace",
		ApplicantEmail: "ada@example.org",
		Status:         "Accepted",
		Tags:           []string{"finalist"},
		Data:           map[string]any{"major": "Mathematics"},
	}
}

func TestSendInlineTemplate(t *testing.T) {
	store := newMemStore()
	sys := newNotifier(t, store, "")
	a := applicant()

	msg, err := sys.Send(context.Background(), notify.Request{
		Email: engine.EmailRequest{
			Template: "Dear {{ application.applicant_name }}, your {{ application.data.major }} application is {{ status }}.",
			Subject:  "Update from {{ stage }}",
		},
		Application: a,
		StageName:   "Interview",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if want := "Dear Ada Lovelace, your Mathematics application is Accepted."; msg.Body != want {
		t.Errorf("body = %q, want %q", msg.Body, want)
	}
	if msg.Subject != "Update from Interview" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if diff := cmp.Diff([]string{"ada@example.org"}, msg.To); diff != "" {
		t.Errorf("recipients (-want +got):\n%s", diff)
	}

	prefix := "outbox/" + a.ID.String() + "/"
	if !strings.HasPrefix(msg.Key, prefix) || !strings.HasSuffix(msg.Key, msg.ID.String()+".json") {
		t.Errorf("key = %q, want %s<timestamp>-%s.json", msg.Key, prefix, msg.ID)
	}

	stored, err := sys.Find(context.Background(), msg.Key)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if diff := cmp.Diff(msg.Body, stored.Body); diff != "" {
		t.Errorf("stored body (-want +got):\n%s", diff)
	}
}

func TestSendNamedTemplate(t *testing.T) {
	dir := t.TempDir()
	body := "{% for tag in tags %}#{{ tag }} {% endfor %}for {{ application.applicant_name }}"
	if err := os.WriteFile(filepath.Join(dir, "tagged.txt"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	sys := newNotifier(t, newMemStore(), dir)

	msg, err := sys.Send(context.Background(), notify.Request{
		Email: engine.EmailRequest{
			Template:   "tagged.txt",
			Subject:    "Tagged",
			Recipients: []string{"committee@example.org"},
		},
		Application: applicant(),
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if want := "#finalist for Ada Lovelace"; msg.Body != want {
		t.Errorf("body = %q, want %q", msg.Body, want)
	}
	if diff := cmp.Diff([]string{"committee@example.org"}, msg.To); diff != "" {
		t.Errorf("recipients (-want +got):\n%s", diff)
	}
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name  string
		email engine.EmailRequest
		strip bool
		want  error
	}{
		{"no recipients", engine.EmailRequest{Template: "hello"}, true, notify.ErrNoRecipients},
		{"broken template", engine.EmailRequest{Template: "{% if %}"}, false, notify.ErrInvalidTemplate},
		{"missing named template", engine.EmailRequest{Template: "absent.html"}, false, notify.ErrInvalidTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			sys := newNotifier(t, store, t.TempDir())

			a := applicant()
			if tt.strip {
				a.ApplicantEmail = ""
			}

			_, err := sys.Send(context.Background(), notify.Request{Email: tt.email, Application: a})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(store.blobs) != 0 {
				t.Errorf("outbox holds %d messages after failure", len(store.blobs))
			}
		})
	}
}

func TestListAndDelete(t *testing.T) {
	store := newMemStore()
	sys := newNotifier(t, store, "")
	ctx := context.Background()

	a, b := applicant(), applicant()
	for _, app := range []applications.Application{a, a, b} {
		if _, err := sys.Send(ctx, notify.Request{Email: engine.EmailRequest{Template: "hi"}, Application: app}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	all, err := sys.List(ctx, nil, "", 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all.Blobs) != 3 {
		t.Errorf("all = %d, want 3", len(all.Blobs))
	}

	mine, err := sys.List(ctx, &a.ID, "", 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine.Blobs) != 2 {
		t.Fatalf("application messages = %d, want 2", len(mine.Blobs))
	}

	if err := sys.Delete(ctx, mine.Blobs[0].Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := sys.Delete(ctx, mine.Blobs[0].Key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if err := sys.Delete(ctx, "documents/report.pdf"); !errors.Is(err, notify.ErrInvalidMessage) {
		t.Errorf("foreign key delete = %v, want ErrInvalidMessage", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_NOTIFY_FROM", "ops@example.org")

	cfg := notify.Config{OutboxPrefix: "/mail/"}
	if err := cfg.Finalize(&notify.Env{From: "TEST_NOTIFY_FROM"}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.From != "ops@example.org" {
		t.Errorf("from = %q", cfg.From)
	}
	if cfg.OutboxPrefix != "mail" {
		t.Errorf("prefix = %q, want mail", cfg.OutboxPrefix)
	}

	bad := notify.Config{From: "not an address"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected invalid from address error")
	}
}
