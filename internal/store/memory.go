package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"oilcall-go/internal/types"
)

// Memory keeps phone calls in process. It is used when no DATABASE_DSN is set.
type Memory struct {
	mu    sync.RWMutex
	calls map[string]types.PhoneCall
}

func NewMemory() *Memory {
	return &Memory{calls: map[string]types.PhoneCall{}}
}

func (m *Memory) CreatePhoneCall(_ context.Context, pc *types.PhoneCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calls[pc.CallID]; ok {
		return fmt.Errorf("failed to create phone call: duplicate call_id %s", pc.CallID)
	}
	pc.ID = uuid.New().String()
	pc.CreatedAt = time.Now().UTC()
	pc.UpdatedAt = pc.CreatedAt
	m.calls[pc.CallID] = *pc
	return nil
}

func (m *Memory) UpdatePhoneCall(_ context.Context, callID string, res types.CallResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.calls[callID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	pc.Status = res.Status
	pc.OilChangePrice = res.OilChangePrice
	pc.SoonestServiceAppt = res.SoonestServiceAppt
	pc.HoldTimeSeconds = res.HoldTimeSeconds
	pc.RecordingURL = res.RecordingURL
	pc.SentToVoicemail = res.SentToVoicemail
	pc.Transcript = res.Transcript
	pc.UpdatedAt = time.Now().UTC()
	m.calls[callID] = pc
	return nil
}

func (m *Memory) GetPhoneCall(_ context.Context, callID string) (*types.PhoneCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pc, ok := m.calls[callID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	return &pc, nil
}

func (m *Memory) ListPhoneCalls(_ context.Context, limit int) ([]types.PhoneCall, error) {
	m.mu.RLock()
	out := make([]types.PhoneCall, 0, len(m.calls))
	for _, pc := range m.calls {
		out = append(out, pc)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
