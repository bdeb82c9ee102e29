package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence bumps the counter row of table's sequence table and returns the new value.
//
// Sessions are numbered from 1 in the order they were opened, and the number is never reused after a
// soft delete, so `vsync history show #3` keeps pointing at the same run. The sequence table is created
// by the migrations with a single row (id = 1).
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin sequence transaction: %w", err)
	}
	defer tx.Rollback()

	counter := table + "_sequence"
	if _, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", counter)); err != nil {
		return 0, fmt.Errorf("failed to advance %s: %w", counter, err)
	}

	var next int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", counter)).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}
	return next, nil
}
