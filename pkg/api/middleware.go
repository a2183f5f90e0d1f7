package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/logger"
	"termcheck/pkg/models"
)

type ctxKeyRequestID struct{}

var RequestIDKey = ctxKeyRequestID{}

func (api *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				log.Errorf("[requestIDMiddleware] failed to generate request ID for %v: %v", r.RemoteAddr, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			reqID = id.String()
			log.Debugf("[requestIDMiddleware] generated request ID:%s for %v", reqID, r.RemoteAddr)
		}

		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (api *API) headerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (api *API) loggingMiddleware(kw MessageWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := logger.New(w)

			next.ServeHTTP(lw, r)

			entry := models.LogEntry{
				Timestamp:    time.Now(),
				IP:           getClientIP(r),
				StatusCode:   lw.Status(),
				RequestID:    GetRequestID(r.Context()),
				Method:       r.Method,
				Path:         r.URL.Path,
				Duration:     time.Since(start).Seconds(),
				Service:      api.ServiceName,
				BytesWritten: lw.BytesWritten(),
			}
			go publishLogEntry(kw, entry)
		})
	}
}

func publishLogEntry(kw MessageWriter, entry models.LogEntry) {
	b, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("[loggingMiddleware] failed to marshal log entry for request %s", entry.RequestID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	msg := kafka.Message{Key: []byte(entry.RequestID), Value: b}
	if err := kw.WriteMessages(ctx, msg); err != nil {
		log.Errorf("[loggingMiddleware] failed to write log to Kafka: %v", err)
		return
	}
	log.Debugf("[loggingMiddleware] log entry sent to Kafka request_id:%s", entry.RequestID)
}

func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	return ip
}
