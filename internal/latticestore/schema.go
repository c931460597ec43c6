package latticestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlLattices = `
CREATE TABLE IF NOT EXISTS lattices (
    utterance_id TEXT         PRIMARY KEY,
    session_id   TEXT         NOT NULL DEFAULT '',
    hyp          TEXT         NOT NULL DEFAULT '',
    score        DOUBLE PRECISION NOT NULL DEFAULT 0,
    num_frames   INTEGER      NOT NULL DEFAULT 0,
    lattice_text TEXT         NOT NULL,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lattices_session_id
    ON lattices (session_id);

CREATE INDEX IF NOT EXISTS idx_lattices_session_created
    ON lattices (session_id, created_at);
`

// Migrate creates the lattices table if it does not already exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlLattices); err != nil {
		return fmt.Errorf("latticestore: migrate: %w", err)
	}
	return nil
}
