// Package logkeeper indexes request log entries read from kafka into elasticsearch.
package logkeeper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/models"
)

// MessageReader is the consuming side of the log topic. *kafka.Reader satisfies it.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Keeper struct {
	es      *elasticsearch.Client
	index   string
	workers int
}

func New(es *elasticsearch.Client, index string, workers int) *Keeper {
	if workers < 1 {
		workers = 1
	}
	return &Keeper{es: es, index: index, workers: workers}
}

// Run reads messages until ctx is cancelled and hands them to the worker pool.
func (k *Keeper) Run(ctx context.Context, r MessageReader) error {
	jobs := make(chan kafka.Message, k.workers*5) // buffer is needed to increase throughput

	var wg sync.WaitGroup
	wg.Add(k.workers)
	for workerID := 0; workerID < k.workers; workerID++ {
		go func(id int) {
			defer wg.Done()
			k.worker(ctx, jobs, id)
		}(workerID)
	}

	log.Info("[logkeeper] accepting logs...")
	err := k.read(ctx, r, jobs)

	close(jobs)
	wg.Wait()

	return err
}

func (k *Keeper) read(ctx context.Context, r MessageReader, jobs chan<- kafka.Message) error {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("[logkeeper] failed to read message from Kafka: %v", err)
			continue
		}
		log.Debugf("[logkeeper] received message: %s", string(msg.Value))

		select {
		case jobs <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (k *Keeper) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Infof("[logkeeper][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				log.Infof("[logkeeper][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}

			entry, err := k.Index(ctx, msg.Value)
			if err != nil {
				log.Errorf("[logkeeper][workerID:%d] %v", workerID, err)
				continue
			}
			log.Infof("[logkeeper][workerID:%d][%s] log entry indexed", workerID, shorten(entry.RequestID))
		}
	}
}

// Index stores one JSON encoded log entry under the id service+requestID.
func (k *Keeper) Index(ctx context.Context, raw []byte) (models.LogEntry, error) {
	var entry models.LogEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("failed to unmarshal log entry: %w", err)
	}

	res, err := k.es.Index(
		k.index,
		bytes.NewReader(raw),
		k.es.Index.WithDocumentID(DocumentID(entry)),
		k.es.Index.WithContext(ctx),
	)
	if err != nil {
		return entry, fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return entry, fmt.Errorf("failed to index document: %s", res.Status())
	}

	return entry, nil
}

func DocumentID(entry models.LogEntry) string {
	return entry.Service + entry.RequestID
}

func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
