package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"zapboard/internal/model"
)

// ScheduledStore holds every scheduled message in memory and mirrors the
// full collection to a single JSON document on each mutation. The file is
// read once at startup; a missing file initializes an empty store and
// persists it immediately.
type ScheduledStore struct {
	path string

	mu       sync.Mutex
	messages []model.ScheduledMessage

	onPendingChange func(pending int)
}

func Open(path string) (*ScheduledStore, error) {
	s := &ScheduledStore{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.messages); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return s, nil
}

// WithPendingHook registers a callback invoked with the current pending
// count after every persisted mutation. Used to keep the statistics
// store's scheduled-message cache in sync.
func (s *ScheduledStore) WithPendingHook(fn func(pending int)) *ScheduledStore {
	s.onPendingChange = fn
	return s
}

// Add appends a new pending message and persists the collection.
// Duplicates (same recipient and time) are allowed; futurity of at is the
// API layer's concern.
func (s *ScheduledStore) Add(recipient, message string, at time.Time) (model.ScheduledMessage, error) {
	s.mu.Lock()

	msg := model.ScheduledMessage{
		ID:            uuid.NewString(),
		Recipient:     recipient,
		Message:       message,
		ScheduledTime: at,
		Status:        model.Pending,
		CreatedAt:     time.Now(),
	}
	s.messages = append(s.messages, msg)

	err := s.persistLocked()
	pending := s.pendingLocked()
	s.mu.Unlock()

	s.notifyPending(pending)
	return msg, err
}

// Remove deletes the message with the given id regardless of its status
// and persists the collection. It reports whether anything was removed.
func (s *ScheduledStore) Remove(id string) (bool, error) {
	s.mu.Lock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)

	err := s.persistLocked()
	pending := s.pendingLocked()
	s.mu.Unlock()

	s.notifyPending(pending)
	return true, err
}

// List returns every message in insertion order.
func (s *ScheduledStore) List() []model.ScheduledMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ScheduledMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Due returns a snapshot of the pending messages whose scheduled time has
// arrived, in insertion order.
func (s *ScheduledStore) Due(now time.Time) []model.ScheduledMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.ScheduledMessage
	for _, m := range s.messages {
		if m.Status == model.Pending && !m.ScheduledTime.After(now) {
			due = append(due, m)
		}
	}
	return due
}

// MarkSent moves a pending message to the sent terminal state in memory.
// The transition is not persisted until Flush; terminal records are never
// touched again.
func (s *ScheduledStore) MarkSent(id string, at time.Time) bool {
	return s.finalize(id, func(m *model.ScheduledMessage) {
		m.Status = model.Sent
		t := at
		m.SentAt = &t
	})
}

// MarkFailed moves a pending message to the failed terminal state in
// memory, recording the failure reason.
func (s *ScheduledStore) MarkFailed(id string, at time.Time, reason string) bool {
	return s.finalize(id, func(m *model.ScheduledMessage) {
		m.Status = model.Failed
		t := at
		m.FailedAt = &t
		m.Error = reason
	})
}

// Flush persists the collection and notifies the pending hook. The
// dispatcher calls it once per tick after applying all terminal
// transitions.
func (s *ScheduledStore) Flush() error {
	s.mu.Lock()
	err := s.persistLocked()
	pending := s.pendingLocked()
	s.mu.Unlock()

	s.notifyPending(pending)
	return err
}

func (s *ScheduledStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *ScheduledStore) finalize(id string, apply func(*model.ScheduledMessage)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 || s.messages[idx].Terminal() {
		return false
	}
	apply(&s.messages[idx])
	return true
}

func (s *ScheduledStore) indexLocked(id string) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *ScheduledStore) pendingLocked() int {
	n := 0
	for _, m := range s.messages {
		if m.Status == model.Pending {
			n++
		}
	}
	return n
}

func (s *ScheduledStore) notifyPending(pending int) {
	if s.onPendingChange != nil {
		s.onPendingChange(pending)
	}
}

// persistLocked rewrites the whole document atomically (temp file +
// rename). Callers hold s.mu.
func (s *ScheduledStore) persistLocked() error {
	if s.messages == nil {
		s.messages = []model.ScheduledMessage{}
	}

	raw, err := json.MarshalIndent(s.messages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scheduled messages: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
