// Package sqlite stores rules, variables and settings in an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"header-rules/internal/storage/sqlstore"
)

var dialect = sqlstore.Dialect{
	Name:   "sqlite",
	Schema: sqlstore.SQLiteSchema,
}

type Adapter struct {
	*sqlstore.Adapter
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		Adapter: sqlstore.New(db, dialect),
		config:  config,
	}

	if err := adapter.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return adapter, nil
}
