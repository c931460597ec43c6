// Package latticestore persists retained lattices and their best
// hypothesis for offline WER analysis (SPEC_FULL.md "internal/latticestore
// ... persists retained lattices and their best hypothesis to PostgreSQL
// for offline WER analysis"), mirroring the teacher's
// pkg/memory/postgres/session_store.go shape: a thin store interface, one
// pgx-backed implementation, one in-memory mock for tests.
package latticestore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

// Record is one persisted utterance's lattice and best hypothesis.
type Record struct {
	UtteranceID string
	SessionID   string
	Hyp         string
	Score       float64
	NumFrames   int
	LatticeText string
	CreatedAt   time.Time
}

// Store persists and retrieves lattice [Record]s.
type Store interface {
	// Put stores g's text-format serialization alongside the decoder's
	// best hypothesis and score under utteranceID/sessionID.
	Put(ctx context.Context, sessionID, utteranceID string, g *lattice.Graph, numFrames int, hyp string, score float64) error

	// Get retrieves the record for utteranceID, or ok=false if none exists.
	Get(ctx context.Context, utteranceID string) (Record, bool, error)

	// Recent returns sessionID's most recently stored records, newest
	// first, bounded by limit (0 means unbounded).
	Recent(ctx context.Context, sessionID string, limit int) ([]Record, error)
}

// encodeLattice serializes g to the text format of spec.md §6.
func encodeLattice(g *lattice.Graph, numFrames int, utteranceID string) (string, error) {
	var buf bytes.Buffer
	if err := lattice.WriteText(&buf, g, numFrames, utteranceID); err != nil {
		return "", fmt.Errorf("latticestore: encode: %w", err)
	}
	return buf.String(), nil
}

// DecodeLattice parses a record's stored text-format lattice back into a
// [lattice.Graph].
func DecodeLattice(text string) (*lattice.Graph, int, string, error) {
	g, numFrames, utteranceID, err := lattice.ReadText(bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, 0, "", fmt.Errorf("latticestore: decode: %w", err)
	}
	return g, numFrames, utteranceID, nil
}
