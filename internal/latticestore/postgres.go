package latticestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore is the pgx-backed [Store] implementation. All methods are
// safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the PostgreSQL database at dsn and runs
// [Migrate] to ensure the lattices table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("latticestore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("latticestore: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Put implements [Store].
func (s *PostgresStore) Put(ctx context.Context, sessionID, utteranceID string, g *lattice.Graph, numFrames int, hyp string, score float64) error {
	text, err := encodeLattice(g, numFrames, utteranceID)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO lattices (utterance_id, session_id, hyp, score, num_frames, lattice_text)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (utterance_id) DO UPDATE SET
		    session_id   = EXCLUDED.session_id,
		    hyp          = EXCLUDED.hyp,
		    score        = EXCLUDED.score,
		    num_frames   = EXCLUDED.num_frames,
		    lattice_text = EXCLUDED.lattice_text`

	if _, err := s.pool.Exec(ctx, q, utteranceID, sessionID, hyp, score, numFrames, text); err != nil {
		return fmt.Errorf("latticestore: put: %w", err)
	}
	return nil
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, utteranceID string) (Record, bool, error) {
	const q = `
		SELECT utterance_id, session_id, hyp, score, num_frames, lattice_text, created_at
		FROM   lattices
		WHERE  utterance_id = $1`

	row := s.pool.QueryRow(ctx, q, utteranceID)
	var r Record
	if err := row.Scan(&r.UtteranceID, &r.SessionID, &r.Hyp, &r.Score, &r.NumFrames, &r.LatticeText, &r.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("latticestore: get: %w", err)
	}
	return r, true, nil
}

// Recent implements [Store].
func (s *PostgresStore) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	q := `
		SELECT utterance_id, session_id, hyp, score, num_frames, lattice_text, created_at
		FROM   lattices
		WHERE  session_id = $1
		ORDER  BY created_at DESC`
	args := []any{sessionID}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("latticestore: recent: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		if err := row.Scan(&r.UtteranceID, &r.SessionID, &r.Hyp, &r.Score, &r.NumFrames, &r.LatticeText, &r.CreatedAt); err != nil {
			return Record{}, err
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("latticestore: recent: scan rows: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
