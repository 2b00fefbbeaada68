/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// MigrationManager applies the versioned schema steps of the docauth
// database and records each applied version in schema_migrations.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	config *Config
}

// Migration is a row of schema_migrations.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk" json:"version" yaml:"version"`
	Name        string    `bun:"name" json:"name" yaml:"name"`
	AppliedAt   time.Time `bun:"applied_at" json:"applied_at" yaml:"applied_at"`
	Description string    `bun:"description" json:"description" yaml:"description"`
}

// MigrationFunc is a migration step. It runs inside the transaction that
// records its version.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem is one versioned step.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager constructs a MigrationManager. A nil cfg selects
// DefaultConfig and a nil logger the package logger.
func NewMigrationManager(db *bun.DB, logger Logger, cfg *Config) *MigrationManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{db: db, logger: logger, config: cfg}
}

// Plan lists the steps enabled by the configuration in version order:
//
//	001 create the registered tables
//	002 add foreign keys, when enabled and not on SQLite
//	003 seed SQL files, when init.auto_init_on_migration is set
func (mm *MigrationManager) Plan() []MigrationItem {
	plan := []MigrationItem{{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create base table structure",
		Up:          mm.createBaseTables,
	}}

	if mm.config.DataMigrateConfig.EnableForeignKey {
		// SQLite cannot add constraints to an existing table.
		if mm.db.Dialect().Name() == dialect.SQLite {
			mm.logger.Debug("Skipping foreign key migration on sqlite")
		} else {
			plan = append(plan, MigrationItem{
				Version:     "002",
				Name:        "add_foreign_keys",
				Description: "Add table foreign key constraints",
				Up:          mm.addForeignKeys,
			})
		}
	}

	if mm.config.DataInitConfig.AutoInitOnMigration {
		plan = append(plan, MigrationItem{
			Version:     "003",
			Name:        "seed_initial_data",
			Description: "Seed initial data",
			Up:          mm.seedInitialData,
		})
	}

	slices.SortFunc(plan, func(a, b MigrationItem) int { return strings.Compare(a.Version, b.Version) })
	return plan
}

// RunMigrations applies every planned step that is not recorded yet. SQL
// echo is silenced unless BUNDEBUG_MIGRATION is set.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := mm.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	for _, step := range pending {
		if err := mm.apply(ctx, step); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", step.Version, err)
		}
		mm.logger.Info("Migration executed successfully", "version", step.Version, "name", step.Name)
	}

	mm.logger.Info("Database migrations completed", "applied", len(pending))
	return nil
}

// PendingMigrations returns the planned steps without a schema_migrations
// row. Before the tracking table exists every step is pending.
func (mm *MigrationManager) PendingMigrations(ctx context.Context) ([]MigrationItem, error) {
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		if is, kind := IsSqlError(err); !is || kind != NoTableErr {
			return nil, err
		}
	}
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	var pending []MigrationItem
	for _, step := range mm.Plan() {
		if !done[step.Version] {
			pending = append(pending, step)
		}
	}
	return pending, nil
}

func (mm *MigrationManager) apply(ctx context.Context, step MigrationItem) error {
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := step.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     step.Version,
				Name:        step.Name,
				AppliedAt:   time.Now(),
				Description: step.Description,
			}).
			Exec(ctx)
		return err
	})
}

// createBaseTables creates registered tables in priority order so referenced
// tables exist first.
func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	fkManager := NewConfigurableForeignKeyManager(mm.logger, mm.config.DataMigrateConfig.ForeignKeyFile)
	if errs := fkManager.ValidateConstraints(); len(errs) > 0 {
		for _, err := range errs {
			mm.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
		}
		return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
	}
	return fkManager.AddAllForeignKeys(ctx, db)
}

// InitData seeds the database from SQL files outside any migration.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	seeder := NewSQLInitManager(db, mm.config.DataInitConfig.Environment)
	if dir := mm.config.DataInitConfig.Filepath; dir != "" {
		seeder.SetSQLRootPath(dir)
	}
	if err := seeder.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		OrderExpr("version ASC").
		Scan(ctx)
	return migrations, err
}
