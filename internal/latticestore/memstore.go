package latticestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store] for tests and small deployments without
// a PostgreSQL instance.
type MemStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

// Put implements [Store].
func (m *MemStore) Put(ctx context.Context, sessionID, utteranceID string, g *lattice.Graph, numFrames int, hyp string, score float64) error {
	text, err := encodeLattice(g, numFrames, utteranceID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[utteranceID] = Record{
		UtteranceID: utteranceID,
		SessionID:   sessionID,
		Hyp:         hyp,
		Score:       score,
		NumFrames:   numFrames,
		LatticeText: text,
		CreatedAt:   time.Now(),
	}
	return nil
}

// Get implements [Store].
func (m *MemStore) Get(ctx context.Context, utteranceID string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[utteranceID]
	return r, ok, nil
}

// Recent implements [Store].
func (m *MemStore) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, r := range m.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
