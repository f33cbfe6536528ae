package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"header-rules/internal/common/errors"
	"header-rules/internal/common/logging"
	"header-rules/internal/common/templates"
	"header-rules/internal/converter"
	"header-rules/internal/models"
	"header-rules/internal/routing"
	"header-rules/internal/storage"
)

// Sync loads a snapshot, converts the active profile and replaces the host's
// rules with the result. Concurrent calls in this process are serialized;
// with Redis configured a sync held by another instance yields a conflict
// error.
func (app *App) Sync(ctx context.Context, trigger string) (*models.SyncReport, error) {
	if trigger == "" {
		trigger = defaultTrigger
	}

	app.syncMu.Lock()
	defer app.syncMu.Unlock()

	if app.Locks != nil {
		lock, err := app.Locks.TryAcquire(ctx, syncLockKey, syncLockTTL)
		if err != nil {
			if errors.IsType(err, errors.ErrTypeConflict) {
				return nil, errors.ConflictError("sync already in progress")
			}
			return nil, fmt.Errorf("failed to take sync lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				app.Logger.Warn("Failed to release sync lock", logging.Err(err))
			}
		}()
	}

	report := &models.SyncReport{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	ctx = logging.ContextWithSyncID(ctx, report.ID)
	logger := app.Logger.WithContext(ctx).WithFields(logging.String("trigger", trigger))

	snapshot, err := app.loadSnapshot(ctx)
	if err != nil {
		logger.Error("Failed to load snapshot", err)
		return nil, err
	}

	result := app.Converter.Convert(ctx, converter.Input{
		Rules:         snapshot.Rules,
		ActiveProfile: snapshot.ActiveProfile,
		Variables:     snapshot.Context(snapshot.ActiveProfile, nil),
		Settings:      snapshot.Settings,
	})
	report.Summary = result.Summary
	report.Warnings = result.Warnings
	report.Failures = result.Errors

	update, err := app.Syncer.Apply(ctx, result.Rules)
	if err != nil {
		logger.Error("Failed to update host rules", err)
		return nil, err
	}
	report.Removed = len(update.RemoveRuleIDs)
	report.Added = len(update.AddRules)

	app.lastMu.Lock()
	app.lastSync = report
	app.lastMu.Unlock()

	if app.RedisClient != nil {
		if err := app.RedisClient.SetJSON(ctx, lastSyncKey, report, 0); err != nil {
			logger.Warn("Failed to publish sync report", logging.Err(err))
		}
	}

	logger.Info("Sync complete",
		logging.String("active_profile", report.Summary.ActiveProfile),
		logging.Int("emitted", report.Summary.Emitted),
		logging.Int("failed", report.Summary.Failed),
		logging.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

// loadSnapshot reads the store and applies the environment overrides
func (app *App) loadSnapshot(ctx context.Context) (*storage.Snapshot, error) {
	snapshot, err := app.Storage.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if app.Config.ActiveProfile != "" {
		snapshot.ActiveProfile = app.Config.ActiveProfile
	}
	if n := app.Config.MaxRulesOverride(); n > 0 {
		snapshot.Settings.MaxRules = n
	}
	return snapshot, nil
}

// LastSync returns the most recent sync report. Without a local one it falls
// back to the report another instance published to Redis.
func (app *App) LastSync(ctx context.Context) (*models.SyncReport, error) {
	app.lastMu.RLock()
	report := app.lastSync
	app.lastMu.RUnlock()
	if report != nil {
		return report, nil
	}

	if app.RedisClient != nil {
		var shared models.SyncReport
		found, err := app.RedisClient.GetJSON(ctx, lastSyncKey, &shared)
		if err != nil {
			return nil, err
		}
		if found {
			return &shared, nil
		}
	}
	return nil, errors.NotFoundError("sync report")
}

// PlatformRules returns the rules the host currently enforces
func (app *App) PlatformRules(ctx context.Context) ([]models.PlatformRule, error) {
	return app.Host.GetRules(ctx)
}

// Analyze reports which rules of the active profile match a request
func (app *App) Analyze(ctx context.Context, req routing.AnalyzeRequest) (*models.AnalysisResult, error) {
	snapshot, err := app.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	settings := snapshot.Settings.WithDefaults()
	processor := routing.NewProcessor(
		app.Converter.Resolver(settings.ResolutionPasses),
		app.Converter.Evaluator(settings.UnknownConditionPolicy),
		logging.Component("processor"),
	)
	vc := snapshot.Context(snapshot.ActiveProfile, nil)
	return processor.Analyze(ctx, req, snapshot.Rules, snapshot.ActiveProfile, vc), nil
}

// Resolve expands template against the stored variables. An empty profile
// uses the active one; req may be nil.
func (app *App) Resolve(ctx context.Context, template, profile string, req *models.RequestContext) (*templates.Result, error) {
	snapshot, err := app.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resolver := app.Converter.Resolver(snapshot.Settings.WithDefaults().ResolutionPasses)
	return resolver.Resolve(ctx, template, snapshot.Context(profile, req)), nil
}

// Health checks storage and, when configured, Redis. Each component maps to
// "ok" or the error it reported.
func (app *App) Health(ctx context.Context) map[string]string {
	status := map[string]string{"storage": "ok"}
	if err := app.Storage.Health(ctx); err != nil {
		status["storage"] = err.Error()
	}
	if app.RedisClient != nil {
		status["redis"] = "ok"
		if err := app.RedisClient.Health(ctx); err != nil {
			status["redis"] = err.Error()
		}
	}
	return status
}
