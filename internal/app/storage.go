package app

import (
	"context"
	"fmt"

	"header-rules/internal/common/logging"
	"header-rules/internal/storage"
	"header-rules/internal/storage/file"
	"header-rules/internal/storage/postgres"
	"header-rules/internal/storage/sqlite"
)

func (app *App) initializeStorage() error {
	storageRegistry := storage.NewRegistry()
	storageRegistry.Register("file", &file.Factory{})
	storageRegistry.Register("sqlite", &sqlite.Factory{})
	storageRegistry.Register("postgres", &postgres.Factory{}, "postgresql")

	switch {
	case app.Config.IsPostgres():
		app.Logger.Info("Storage: PostgreSQL",
			logging.String("host", app.Config.PostgresHost),
			logging.String("port", app.Config.PostgresPort),
			logging.String("database", app.Config.PostgresDB),
		)
	case app.Config.StorageType == "sqlite":
		app.Logger.Info("Storage: SQLite", logging.String("path", app.Config.DatabasePath))
	default:
		app.Logger.Info("Storage: snapshot file", logging.String("path", app.Config.SnapshotPath))
	}

	store, err := storage.NewStorage(storageRegistry, app.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.Storage = store

	if app.Config.SeedPath != "" {
		if err := app.seedStorage(context.Background()); err != nil {
			store.Close()
			return err
		}
	}
	return nil
}

// seedStorage imports the seed snapshot into a writable store
func (app *App) seedStorage(ctx context.Context) error {
	writer, ok := app.Storage.(storage.Writer)
	if !ok {
		app.Logger.Warn("Storage does not accept edits, seed ignored",
			logging.String("seed_path", app.Config.SeedPath))
		return nil
	}
	if _, isFile := app.Storage.(*file.Store); isFile {
		app.Logger.Warn("Seeding applies to database storage only, seed ignored",
			logging.String("seed_path", app.Config.SeedPath))
		return nil
	}

	seed, err := file.NewStore(&file.Config{Path: app.Config.SeedPath})
	if err != nil {
		return fmt.Errorf("failed to open seed: %w", err)
	}
	defer seed.Close()

	snapshot, err := seed.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seed: %w", err)
	}
	if err := storage.Import(ctx, writer, snapshot); err != nil {
		return fmt.Errorf("failed to import seed: %w", err)
	}

	app.Logger.Info("Storage seeded",
		logging.String("seed_path", app.Config.SeedPath),
		logging.Int("rules", len(snapshot.Rules)),
		logging.Int("variables", len(snapshot.Variables)),
	)
	return nil
}
