package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// RunMigrations executes database migrations
func RunMigrations(db *sql.DB, dialect Dialect) error {
	migrations := []string{
		createUsersTable,
		createUsersUsernameIndex,
		createUsersEmailIndex,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(dialect.ddl(migration)); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// ddl fills the dialect specific column types into a schema statement.
func (d Dialect) ddl(stmt string) string {
	identity, timestamp := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if d == DialectPostgres {
		identity, timestamp = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	return strings.NewReplacer("{{identity}}", identity, "{{timestamp}}", timestamp).Replace(stmt)
}

// Database schema definitions
const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id {{identity}},
    username VARCHAR(50) UNIQUE NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    display_name VARCHAR(100),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_date {{timestamp}} NOT NULL,
    last_modified {{timestamp}} NOT NULL
);`

const createUsersUsernameIndex = `CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`

const createUsersEmailIndex = `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`
