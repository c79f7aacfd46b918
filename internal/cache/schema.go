package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SchemaVersion is stored in PRAGMA user_version. A mismatch drops and
// recreates the characters table; cached rows are not migrated.
const SchemaVersion = 1

const tableName = "characters"

var createStatements = []string{
	`CREATE TABLE ` + tableName + ` (
	    dbkey INTEGER PRIMARY KEY,
	    id INTEGER NOT NULL,
	    name TEXT NOT NULL,
	    description TEXT NOT NULL,
	    image_path TEXT NOT NULL,
	    image_suffix TEXT NOT NULL,
	    timestamp INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX ` + tableName + `_id ON ` + tableName + ` (id)`,
	`CREATE INDEX ` + tableName + `_timestamp ON ` + tableName + ` (timestamp)`,
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// ensureSchema creates the table on a fresh database and rebuilds it when
// the stored version differs from SchemaVersion.
func ensureSchema(ctx context.Context, db *sql.DB, version int) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current == version {
		return nil
	}

	slog.Info("Rebuilding cache schema", "from", current, "to", version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+tableName); err != nil {
		return fmt.Errorf("drop %s: %w", tableName, err)
	}
	for _, stmt := range createStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", tableName, err)
		}
	}
	// PRAGMA does not accept bind parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}
