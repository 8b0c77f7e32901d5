package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/pkg/logger"
	"github.com/mzhang055/twirl/pkg/metrics"
)

// Persisted key layout. "chatHistory" is the legacy single-record slot kept
// for installs that predate the multi-conversation store; readers fall back
// to it when "chats" is empty, and every merge refreshes it.
const (
	KeyChats    = "chats"
	KeySelected = "selectedChat"
	KeyLegacy   = "chatHistory"
	KeyTransfer = "transferData"
)

// DefaultMaxChats is the retained-conversation bound when none is configured.
const DefaultMaxChats = 10

var (
	// ErrNotFound means no record matches the requested id, or the store is
	// empty.
	ErrNotFound = errors.New("conversation not found")
	// ErrMalformedRecord means a record is missing required fields and was
	// not written.
	ErrMalformedRecord = errors.New("malformed conversation record")
)

// Store is the persisted mapping of conversation id to record, bounded by
// recency eviction, plus the currently selected id.
type Store struct {
	kv       KV
	maxChats int
	log      *logger.Logger
	now      func() time.Time

	// mu serializes read-modify-write cycles within this process. Across
	// processes writes are last-write-wins per merge; eviction is a soft
	// capacity bound, so a near-simultaneous merge from another instance
	// basing its eviction on slightly stale data is acceptable.
	mu sync.Mutex
}

// New builds a store over the given KV backend.
func New(kv KV, maxChats int, log *logger.Logger) *Store {
	if maxChats <= 0 {
		maxChats = DefaultMaxChats
	}
	return &Store{kv: kv, maxChats: maxChats, log: log, now: time.Now}
}

// Merge inserts or overwrites a record by id, recomputes the retained set as
// the maxChats most recently created records, refreshes the legacy slot, and
// selects the record when nothing is selected yet.
func (s *Store) Merge(ctx context.Context, rec *model.ConversationRecord) error {
	if rec == nil || rec.ID == "" || len(rec.Turns) == 0 {
		return ErrMalformedRecord
	}
	rec.TurnCount = len(rec.Turns)

	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.readChats(ctx)
	if err != nil {
		return err
	}
	chats[rec.ID] = rec

	evicted := s.evict(chats)
	if err := s.writeChats(ctx, chats); err != nil {
		return err
	}
	if err := s.putJSON(ctx, KeyLegacy, rec); err != nil {
		s.log.Warn("failed to refresh legacy slot", zap.Error(err))
	}

	selected, err := s.readSelected(ctx)
	if err != nil {
		return err
	}
	if selected == "" {
		if err := s.kv.Put(ctx, KeySelected, []byte(rec.ID)); err != nil {
			return err
		}
	}

	metrics.StoreMerges.Inc()
	for range evicted {
		metrics.StoreEvictions.Inc()
	}
	s.log.Debug("conversation merged",
		zap.String("id", rec.ID),
		zap.Int("turns", rec.TurnCount),
		zap.Int("evicted", len(evicted)),
	)
	return nil
}

// evict trims the map to the maxChats most recently created records and
// returns the ids dropped. The sort is stable, so exact timestamp collisions
// keep a deterministic order.
func (s *Store) evict(chats map[string]*model.ConversationRecord) []string {
	if len(chats) <= s.maxChats {
		return nil
	}
	records := make([]*model.ConversationRecord, 0, len(chats))
	for _, r := range chats {
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	var evicted []string
	for _, r := range records[s.maxChats:] {
		delete(chats, r.ID)
		evicted = append(evicted, r.ID)
	}
	return evicted
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (*model.ConversationRecord, error) {
	chats, err := s.readChats(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// List returns all retained records, most recent first, plus the selected id.
func (s *Store) List(ctx context.Context) ([]*model.ConversationRecord, string, error) {
	chats, err := s.readChats(ctx)
	if err != nil {
		return nil, "", err
	}
	records := make([]*model.ConversationRecord, 0, len(chats))
	for _, r := range chats {
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	selected, err := s.readSelected(ctx)
	if err != nil {
		return nil, "", err
	}
	return records, selected, nil
}

// Select marks a record as the current selection.
func (s *Store) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats, err := s.readChats(ctx)
	if err != nil {
		return err
	}
	if _, ok := chats[id]; !ok {
		return ErrNotFound
	}
	return s.kv.Put(ctx, KeySelected, []byte(id))
}

// GetSelected returns the selected record. When the selection is missing or
// was evicted it falls back to the most recent record and repairs the
// selection, then to the legacy single-record slot, then reports ErrNotFound.
func (s *Store) GetSelected(ctx context.Context) (*model.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.readChats(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := s.readSelected(ctx)
	if err != nil {
		return nil, err
	}
	if selected != "" {
		if rec, ok := chats[selected]; ok {
			return rec, nil
		}
	}
	if rec := mostRecent(chats); rec != nil {
		if err := s.kv.Put(ctx, KeySelected, []byte(rec.ID)); err != nil {
			s.log.Warn("failed to repair selection", zap.Error(err))
		}
		return rec, nil
	}
	var legacy model.ConversationRecord
	if err := s.getJSON(ctx, KeyLegacy, &legacy); err == nil && legacy.TurnCount > 0 {
		return &legacy, nil
	}
	return nil, ErrNotFound
}

// GetMostRecent returns the most recently created retained record.
func (s *Store) GetMostRecent(ctx context.Context) (*model.ConversationRecord, error) {
	chats, err := s.readChats(ctx)
	if err != nil {
		return nil, err
	}
	if rec := mostRecent(chats); rec != nil {
		return rec, nil
	}
	return nil, ErrNotFound
}

// ClearAll removes every record, the selection, and the legacy slot.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{KeyChats, KeySelected, KeyLegacy} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func mostRecent(chats map[string]*model.ConversationRecord) *model.ConversationRecord {
	var best *model.ConversationRecord
	for _, r := range chats {
		if best == nil || r.CreatedAt.After(best.CreatedAt) ||
			(r.CreatedAt.Equal(best.CreatedAt) && r.ID < best.ID) {
			best = r
		}
	}
	return best
}

func (s *Store) readChats(ctx context.Context) (map[string]*model.ConversationRecord, error) {
	chats := make(map[string]*model.ConversationRecord)
	data, err := s.kv.Get(ctx, KeyChats)
	if errors.Is(err, ErrKeyNotFound) {
		return chats, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("corrupt chats entry: %w", err)
	}
	return chats, nil
}

func (s *Store) writeChats(ctx context.Context, chats map[string]*model.ConversationRecord) error {
	data, err := json.Marshal(chats)
	if err != nil {
		return fmt.Errorf("failed to marshal chats: %w", err)
	}
	return s.kv.Put(ctx, KeyChats, data)
}

func (s *Store) readSelected(ctx context.Context) (string, error) {
	data, err := s.kv.Get(ctx, KeySelected)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.kv.Put(ctx, key, data)
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
