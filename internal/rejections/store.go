// Package rejections keeps a durable JSONL record of events the projectors
// could not apply, so an operator can replay or inspect them.
package rejections

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tourbook-backend/internal/model"
)

// Record is one line of a rejections file.
type Record struct {
	Topic     string       `json:"topic"`
	Reason    string       `json:"reason"`
	Event     *model.Event `json:"event,omitempty"`
	Raw       string       `json:"raw,omitempty"`
	Timestamp string       `json:"timestamp"`
}

// Store appends records to one file per UTC day under dir.
type Store struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// WriteEvent records an event whose projection failed.
func (s *Store) WriteEvent(ctx context.Context, evt model.Event, reason error) error {
	return s.write(ctx, Record{Topic: evt.Type.Topic(), Reason: reason.Error(), Event: &evt})
}

// WriteRaw records a message that could not be decoded.
func (s *Store) WriteRaw(ctx context.Context, topic string, raw []byte, reason error) error {
	return s.write(ctx, Record{Topic: topic, Reason: reason.Error(), Raw: string(raw)})
}

func (s *Store) write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now().UTC()
	rec.Timestamp = now.Format(time.RFC3339Nano)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	fpath := filepath.Join(s.dir, fmt.Sprintf("rejections_%s.jsonl", now.Format("2006-01-02")))
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}
