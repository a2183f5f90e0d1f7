package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"

	"termcheck/pkg/models"
)

type chanWriter struct {
	msgs chan kafka.Message
}

func (w *chanWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		w.msgs <- m
	}
	return nil
}

func Test_requestIDMiddlewareHeaderExists(t *testing.T) {
	api := &API{}
	wantID := "test-req-id-123"
	handler := api.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != wantID {
			t.Errorf("want request id in context %q, got %q", wantID, got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", wantID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-Id"); got != wantID {
		t.Errorf("want X-Request-Id header %q, got %q", wantID, got)
	}
}

func Test_requestIDMiddlewareHeaderNotExists(t *testing.T) {
	api := &API{}
	handler := api.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID := GetRequestID(r.Context())
		if _, err := uuid.FromString(gotID); err != nil {
			t.Errorf("want valid UUID for generated request id, got %q", gotID)
		}
		if respID := w.Header().Get("X-Request-Id"); respID != gotID {
			t.Errorf("want X-Request-Id header %q, got %q", gotID, respID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("want status code %v, got %v", http.StatusOK, rr.Code)
	}
}

func Test_loggingMiddleware(t *testing.T) {
	kw := &chanWriter{msgs: make(chan kafka.Message, 1)}
	api := &API{ServiceName: "termcheck"}

	handler := api.requestIDMiddleware(api.loggingMiddleware(kw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "short and stout")
	})))

	req := httptest.NewRequest(http.MethodPost, "/check", nil)
	req.Header.Set("X-Request-Id", testRequestID)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var msg kafka.Message
	select {
	case msg = <-kw.msgs:
	case <-time.After(2 * time.Second):
		t.Fatal("want log entry published, got none")
	}

	if string(msg.Key) != testRequestID {
		t.Errorf("want message key %q, got %q", testRequestID, msg.Key)
	}

	var entry models.LogEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}

	if entry.StatusCode != http.StatusTeapot {
		t.Errorf("want status code %d, got %d", http.StatusTeapot, entry.StatusCode)
	}
	if entry.RequestID != testRequestID {
		t.Errorf("want request id %q, got %q", testRequestID, entry.RequestID)
	}
	if entry.Method != http.MethodPost || entry.Path != "/check" {
		t.Errorf("want POST /check, got %s %s", entry.Method, entry.Path)
	}
	if entry.IP != "10.0.0.1" {
		t.Errorf("want ip %q, got %q", "10.0.0.1", entry.IP)
	}
	if entry.Service != "termcheck" {
		t.Errorf("want service %q, got %q", "termcheck", entry.Service)
	}
	if entry.BytesWritten != len("short and stout") {
		t.Errorf("want %d bytes written, got %d", len("short and stout"), entry.BytesWritten)
	}
}
