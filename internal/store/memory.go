package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/joshsymonds/inboxsteward/internal/policy"
	"github.com/joshsymonds/inboxsteward/internal/run"
)

// Memory is an in-process Repository. Values are deep-copied on the way in
// and out so callers cannot mutate stored state through shared pointers.
type Memory struct {
	mu       sync.RWMutex
	policies map[string]json.RawMessage
	runs     map[string]json.RawMessage
	runOrder []string // insertion order, oldest first
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		policies: make(map[string]json.RawMessage),
		runs:     make(map[string]json.RawMessage),
	}
}

func (m *Memory) SavePolicy(_ context.Context, p *policy.Policy) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("save policy: missing id")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode policy %s: %w", p.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = raw
	return nil
}

func (m *Memory) GetPolicy(_ context.Context, id string) (*policy.Policy, error) {
	m.mu.RLock()
	raw, ok := m.policies[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var p policy.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", id, err)
	}
	return &p, nil
}

func (m *Memory) ListPolicies(_ context.Context, userID string) ([]*policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*policy.Policy
	for id, raw := range m.policies {
		var p policy.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode policy %s: %w", id, err)
		}
		if p.UserID == userID {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeletePolicy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[id]; !ok {
		return ErrNotFound
	}
	delete(m.policies, id)
	return nil
}

func (m *Memory) SaveRun(_ context.Context, r *run.Run) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save run: missing id")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", r.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; !ok {
		m.runOrder = append(m.runOrder, r.ID)
	}
	m.runs[r.ID] = raw
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*run.Run, error) {
	m.mu.RLock()
	raw, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var r run.Run
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &r, nil
}

func (m *Memory) ListRuns(_ context.Context, userID string, limit int) ([]*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*run.Run
	for i := len(m.runOrder) - 1; i >= 0; i-- {
		raw := m.runs[m.runOrder[i]]
		var r run.Run
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", m.runOrder[i], err)
		}
		if r.UserID != userID {
			continue
		}
		out = append(out, &r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) RunCount(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, raw := range m.runs {
		var probe struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return 0, fmt.Errorf("decode run: %w", err)
		}
		if probe.UserID == userID {
			n++
		}
	}
	return n, nil
}

var _ Repository = (*Memory)(nil)
