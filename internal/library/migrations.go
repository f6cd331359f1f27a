package library

import (
	"context"
	"database/sql"
)

// Migration represents a single database migration. Each migration has a
// unique ID and is applied at most once, in order.
type Migration struct {
	ID int
	Up func(db *sql.DB) error
}

// migrations is the ordered list of schema migrations. Add new entries here
// when the spectra schema changes after release.
//
// Example:
//
//	{
//	 ID: 1,
//	 Up: func(db *sql.DB) error {
//	   _, err := db.Exec(`ALTER TABLE spectra ADD COLUMN cas_number TEXT;`)
//	   return err
//	 },
//	},
var migrations = []Migration{
	// Migrations will be added here as needed
}

// ApplyMigrations applies all pending migrations to the database.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger func(msg string, args ...interface{})) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM migrations`)
	if err != nil {
		return err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		logger("Applying migration %d", m.ID)
		if err := m.Up(db); err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT INTO migrations (id) VALUES (?)`, m.ID); err != nil {
			return err
		}
		logger("Migration %d applied", m.ID)
	}
	return nil
}
