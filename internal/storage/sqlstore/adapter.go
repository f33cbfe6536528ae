// Package sqlstore holds the SQL adapter shared by the SQLite and PostgreSQL
// backends. Rules keep their scalar fields in columns and their nested parts
// as JSON text.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"header-rules/internal/common/errors"
	"header-rules/internal/models"
	"header-rules/internal/storage"
)

// Dialect captures the differences between the supported databases
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of ?
	NumberedPlaceholders bool
	// Schema statements run by Migrate
	Schema []string
}

// Adapter implements storage.Store and storage.Writer on a *sql.DB
type Adapter struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New wraps db. Call Migrate before use.
func New(db *sql.DB, dialect Dialect) *Adapter {
	return &Adapter{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying database
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Adapter) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist
func (a *Adapter) Migrate(ctx context.Context) error {
	for _, stmt := range a.dialect.Schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s database: %w", a.dialect.Name, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them
func (a *Adapter) rebind(query string) string {
	if !a.dialect.NumberedPlaceholders {
		return query
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// LoadSnapshot reads all rules, variables and settings in one transaction
func (a *Adapter) LoadSnapshot(ctx context.Context) (*storage.Snapshot, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, errors.StorageError("failed to begin snapshot", err)
	}
	defer tx.Rollback()

	rules, err := a.loadRules(ctx, tx)
	if err != nil {
		return nil, err
	}
	variables, err := a.loadVariables(ctx, tx)
	if err != nil {
		return nil, err
	}
	values, err := a.loadSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	settings, active, err := storage.ParseSettings(values)
	if err != nil {
		return nil, err
	}

	return &storage.Snapshot{
		Rules:         rules,
		Variables:     variables,
		ActiveProfile: active,
		Settings:      settings,
		LoadedAt:      time.Now(),
	}, nil
}

func (a *Adapter) loadRules(ctx context.Context, tx *sql.Tx) (models.RuleCollection, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, enabled, profile_id, priority, pattern, headers,
		conditions, resource_types, created_at, updated_at FROM rules`)
	if err != nil {
		return nil, errors.StorageError("failed to query rules", err)
	}
	defer rows.Close()

	rules := models.RuleCollection{}
	for rows.Next() {
		var (
			r                                              models.Rule
			pattern, headers, conditions, resourceTypes string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Enabled, &r.ProfileID, &r.Priority, &pattern, &headers,
			&conditions, &resourceTypes, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errors.StorageError("failed to scan rule", err)
		}
		if err := unmarshalJSON(pattern, &r.Pattern); err != nil {
			return nil, errors.StorageError("invalid pattern for rule "+r.ID, err)
		}
		if err := unmarshalJSON(headers, &r.Headers); err != nil {
			return nil, errors.StorageError("invalid headers for rule "+r.ID, err)
		}
		if err := unmarshalJSON(conditions, &r.Conditions); err != nil {
			return nil, errors.StorageError("invalid conditions for rule "+r.ID, err)
		}
		if err := unmarshalJSON(resourceTypes, &r.ResourceTypes); err != nil {
			return nil, errors.StorageError("invalid resource types for rule "+r.ID, err)
		}
		rules[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("failed to read rules", err)
	}
	return rules, nil
}

func (a *Adapter) loadVariables(ctx context.Context, tx *sql.Tx) ([]models.Variable, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, value, scope, enabled, profile_id, rule_id
		FROM variables ORDER BY id`)
	if err != nil {
		return nil, errors.StorageError("failed to query variables", err)
	}
	defer rows.Close()

	variables := []models.Variable{}
	for rows.Next() {
		var (
			v     models.Variable
			scope string
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Value, &scope, &v.Enabled, &v.ProfileID, &v.RuleID); err != nil {
			return nil, errors.StorageError("failed to scan variable", err)
		}
		v.Scope = models.VariableScope(scope)
		variables = append(variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("failed to read variables", err)
	}
	return variables, nil
}

func (a *Adapter) loadSettings(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, errors.StorageError("failed to query settings", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.StorageError("failed to scan setting", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("failed to read settings", err)
	}
	return values, nil
}

// PutRule inserts or replaces a rule. The creation time of an existing rule
// is kept so its position in the processing order does not change.
func (a *Adapter) PutRule(ctx context.Context, rule models.Rule) error {
	if rule.ID == "" {
		return errors.ValidationError("rule id is required")
	}

	pattern, err := marshalJSON(rule.Pattern)
	if err != nil {
		return err
	}
	headers, err := marshalJSON(nonNil(rule.Headers))
	if err != nil {
		return err
	}
	conditions, err := marshalJSON(nonNil(rule.Conditions))
	if err != nil {
		return err
	}
	resourceTypes, err := marshalJSON(nonNil(rule.ResourceTypes))
	if err != nil {
		return err
	}

	now := a.now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	_, err = a.db.ExecContext(ctx, a.rebind(`INSERT INTO rules
		(id, name, enabled, profile_id, priority, pattern, headers, conditions, resource_types, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			enabled = excluded.enabled,
			profile_id = excluded.profile_id,
			priority = excluded.priority,
			pattern = excluded.pattern,
			headers = excluded.headers,
			conditions = excluded.conditions,
			resource_types = excluded.resource_types,
			updated_at = excluded.updated_at`),
		rule.ID, rule.Name, rule.Enabled, rule.ProfileID, rule.Priority, pattern, headers, conditions,
		resourceTypes, rule.CreatedAt.UTC(), now)
	if err != nil {
		return errors.StorageError("failed to store rule", err)
	}
	return nil
}

func (a *Adapter) DeleteRule(ctx context.Context, id string) error {
	return a.deleteByID(ctx, "rules", "rule", id)
}

func (a *Adapter) PutVariable(ctx context.Context, v models.Variable) error {
	if err := v.Validate(); err != nil {
		return errors.ValidationError("invalid variable: " + err.Error())
	}
	v.ID = storage.VariableID(v)

	_, err := a.db.ExecContext(ctx, a.rebind(`INSERT INTO variables
		(id, name, value, scope, enabled, profile_id, rule_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			value = excluded.value,
			scope = excluded.scope,
			enabled = excluded.enabled,
			profile_id = excluded.profile_id,
			rule_id = excluded.rule_id`),
		v.ID, v.Name, v.Value, string(v.Scope), v.Enabled, v.ProfileID, v.RuleID)
	if err != nil {
		return errors.StorageError("failed to store variable", err)
	}
	return nil
}

func (a *Adapter) DeleteVariable(ctx context.Context, id string) error {
	return a.deleteByID(ctx, "variables", "variable", id)
}

func (a *Adapter) SetSetting(ctx context.Context, key, value string) error {
	if err := storage.ValidateSetting(key, value); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, a.rebind(`INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, a.now())
	if err != nil {
		return errors.StorageError("failed to store setting", err)
	}
	return nil
}

func (a *Adapter) deleteByID(ctx context.Context, table, resource, id string) error {
	res, err := a.db.ExecContext(ctx, a.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return errors.StorageError("failed to delete "+resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.StorageError("failed to delete "+resource, err)
	}
	if n == 0 {
		return errors.NotFoundError(resource)
	}
	return nil
}

func marshalJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.InternalError("failed to encode rule", err)
	}
	return string(b), nil
}

func unmarshalJSON(data string, target interface{}) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), target)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
