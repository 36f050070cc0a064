package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// The catalog loader owns participants rows; this worker only rewrites
// rating. Submissions are append-only: the primary key doubles as the
// idempotency key and is never updated.
const schema = `
CREATE TABLE IF NOT EXISTS participants (
	participant_id BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	url            TEXT NOT NULL,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	rating         DOUBLE PRECISION NOT NULL DEFAULT 1800
);

CREATE TABLE IF NOT EXISTS submissions (
	submission_id TEXT PRIMARY KEY,
	white_id      BIGINT NOT NULL,
	black_id      BIGINT NOT NULL,
	white_score   INTEGER NOT NULL,
	black_score   INTEGER NOT NULL,
	recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// CreateTables bootstraps the schema if it does not exist yet.
func CreateTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
