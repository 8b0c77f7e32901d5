package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/pkg/metrics"
)

var (
	// ErrNoSlot means no transfer is pending.
	ErrNoSlot = errors.New("no pending transfer")
	// ErrSlotExpired means a transfer was pending but aged past its TTL
	// before being consumed.
	ErrSlotExpired = errors.New("transfer expired")
)

// PutSlot stages formatted conversation text for pickup by the target
// platform. A new slot overwrites any pending one.
func (s *Store) PutSlot(ctx context.Context, slot *model.TransferSlot) error {
	if slot == nil || slot.Text == "" {
		return ErrMalformedRecord
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = s.now()
	}
	data, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer slot: %w", err)
	}
	if err := s.kv.Put(ctx, KeyTransfer, data); err != nil {
		metrics.TransferSlots.WithLabelValues("create", "error").Inc()
		return err
	}
	metrics.TransferSlots.WithLabelValues("create", "ok").Inc()
	return nil
}

// ConsumeSlot reads and removes the pending transfer. The slot is deleted on
// every read, fresh or stale, so a transfer is delivered at most once; an
// aged slot reports ErrSlotExpired after removal.
func (s *Store) ConsumeSlot(ctx context.Context) (*model.TransferSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get(ctx, KeyTransfer)
	if errors.Is(err, ErrKeyNotFound) {
		metrics.TransferSlots.WithLabelValues("consume", "missing").Inc()
		return nil, ErrNoSlot
	}
	if err != nil {
		return nil, err
	}
	if err := s.kv.Delete(ctx, KeyTransfer); err != nil {
		return nil, err
	}

	var slot model.TransferSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, fmt.Errorf("corrupt transfer slot: %w", err)
	}
	if slot.Expired(s.now()) {
		metrics.TransferSlots.WithLabelValues("consume", "expired").Inc()
		return nil, fmt.Errorf("%w: created %s ago", ErrSlotExpired, s.now().Sub(slot.CreatedAt).Round(time.Second))
	}
	metrics.TransferSlots.WithLabelValues("consume", "ok").Inc()
	return &slot, nil
}
