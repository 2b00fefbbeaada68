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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

// ForeignKeyConstraint is a foreign key added by the add_foreign_keys
// migration. The same shape is read from and written to the YAML file.
type ForeignKeyConstraint struct {
	Table           string `json:"table" yaml:"table"`
	Column          string `json:"column" yaml:"column"`
	ReferenceTable  string `json:"reference_table" yaml:"reference_table"`
	ReferenceColumn string `json:"reference_column" yaml:"reference_column"`
	OnDelete        string `json:"on_delete,omitempty" yaml:"on_delete,omitempty"` // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string `json:"on_update,omitempty" yaml:"on_update,omitempty"`
	ConstraintName  string `json:"constraint_name,omitempty" yaml:"constraint_name,omitempty"`
}

// GenerateConstraintName returns the explicit name or fk_<table>_<column>.
func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return "fk_" + fk.Table + "_" + fk.Column
}

// GenerateSQL returns the ALTER TABLE statement that adds the constraint.
func (fk *ForeignKeyConstraint) GenerateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		fk.Table, fk.GenerateConstraintName(), fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	return b.String()
}

var referentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// Validate reports missing names and unknown referential actions.
func (fk *ForeignKeyConstraint) Validate() []error {
	var errs []error
	required := []struct{ value, what string }{
		{fk.Table, "table name"},
		{fk.Column, "column name"},
		{fk.ReferenceTable, "reference table name"},
		{fk.ReferenceColumn, "reference column name"},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty: %s.%s -> %s.%s",
				r.what, fk.Table, fk.Column, fk.ReferenceTable, fk.ReferenceColumn))
		}
	}
	policies := []struct{ value, what string }{
		{fk.OnDelete, "delete"},
		{fk.OnUpdate, "update"},
	}
	for _, p := range policies {
		if p.value != "" && !slices.Contains(referentialActions, strings.ToUpper(p.value)) {
			errs = append(errs, fmt.Errorf("invalid %s policy: %s, constraint: %s", p.what, p.value, fk.GenerateConstraintName()))
		}
	}
	return errs
}

var (
	defaultForeignKeys   []ForeignKeyConstraint
	defaultForeignKeysMu sync.RWMutex
)

// RegisterForeignKeys adds code-defined constraints used when no YAML file is
// available. A constraint with an already registered name replaces it.
func RegisterForeignKeys(constraints ...ForeignKeyConstraint) {
	defaultForeignKeysMu.Lock()
	defer defaultForeignKeysMu.Unlock()
	for _, c := range constraints {
		name := c.GenerateConstraintName()
		i := slices.IndexFunc(defaultForeignKeys, func(existing ForeignKeyConstraint) bool {
			return existing.GenerateConstraintName() == name
		})
		if i >= 0 {
			defaultForeignKeys[i] = c
		} else {
			defaultForeignKeys = append(defaultForeignKeys, c)
		}
	}
}

func getForeignKeyConstraints() []ForeignKeyConstraint {
	defaultForeignKeysMu.RLock()
	defer defaultForeignKeysMu.RUnlock()
	return slices.Clone(defaultForeignKeys)
}

// ForeignKeyManager adds and validates a set of constraints.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager creates a manager over the registered constraints.
func NewForeignKeyManager(logger Logger) *ForeignKeyManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &ForeignKeyManager{constraints: getForeignKeyConstraints(), logger: logger}
}

// AddAllForeignKeys adds every constraint. Failures are logged and skipped so
// re-running against a database that already has them is harmless.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) error {
	added := 0
	for _, c := range fkm.constraints {
		if _, err := db.ExecContext(ctx, c.GenerateSQL()); err != nil {
			fkm.log().Debug("Failed to add foreign key constraint", "constraint", c.GenerateConstraintName(), "error", err.Error())
			continue
		}
		added++
	}
	fkm.log().Info("Foreign key constraints added", "added", added, "total", len(fkm.constraints))
	return nil
}

func (fkm *ForeignKeyManager) log() Logger {
	if fkm.logger == nil {
		return GetLogger()
	}
	return fkm.logger
}

// RemoveForeignKey drops a named foreign key from a table.
func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, tableName, constraintName string) error {
	_, err := db.ExecContext(ctx, "ALTER TABLE ? DROP CONSTRAINT ?", bun.Ident(tableName), bun.Ident(constraintName))
	return err
}

// GetConstraintsByTable returns the constraints declared on a table.
func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, c := range fkm.constraints {
		if strings.EqualFold(c.Table, tableName) {
			result = append(result, c)
		}
	}
	return result
}

// ListAllConstraints returns all managed constraints.
func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ValidateConstraints validates every constraint.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, c := range fkm.constraints {
		errs = append(errs, c.Validate()...)
	}
	return errs
}

// foreignKeyFile is the YAML layout of configs/foreign_keys.yaml.
type foreignKeyFile struct {
	ForeignKeys []foreignKeyEntry `yaml:"foreign_keys"`
}

type foreignKeyEntry struct {
	ForeignKeyConstraint `yaml:",inline"`
	Description          string `yaml:"description,omitempty"`
}

// ConfigurableForeignKeyManager reads its constraints from a YAML file and
// falls back to the registered ones when the file cannot be loaded.
type ConfigurableForeignKeyManager struct {
	*ForeignKeyManager
	configPath string
}

// NewConfigurableForeignKeyManager creates a manager for the YAML file at
// configPath.
func NewConfigurableForeignKeyManager(logger Logger, configPath string) *ConfigurableForeignKeyManager {
	m := &ConfigurableForeignKeyManager{
		ForeignKeyManager: &ForeignKeyManager{logger: logger},
		configPath:        configPath,
	}
	if err := m.ReloadConfig(); err != nil {
		m.log().Debug("Failed to load foreign key constraints from config, using code-defined defaults", "error", err.Error(), "config_path", configPath)
		m.constraints = getForeignKeyConstraints()
	}
	return m
}

// ReloadConfig replaces the constraints with the content of the YAML file.
func (cfm *ConfigurableForeignKeyManager) ReloadConfig() error {
	if cfm.configPath == "" {
		return errors.New("no foreign key config file configured")
	}
	data, err := os.ReadFile(cfm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var file foreignKeyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	constraints := make([]ForeignKeyConstraint, len(file.ForeignKeys))
	for i, entry := range file.ForeignKeys {
		constraints[i] = entry.ForeignKeyConstraint
	}
	cfm.constraints = constraints
	return nil
}

// ExportToConfig writes the constraints as YAML to outputPath, creating
// parent directories. Each entry carries a readable description.
func (cfm *ConfigurableForeignKeyManager) ExportToConfig(outputPath string) error {
	file := foreignKeyFile{ForeignKeys: make([]foreignKeyEntry, len(cfm.constraints))}
	for i, c := range cfm.constraints {
		file.ForeignKeys[i] = foreignKeyEntry{
			ForeignKeyConstraint: c,
			Description:          fmt.Sprintf("%s.%s -> %s.%s", c.Table, c.Column, c.ReferenceTable, c.ReferenceColumn),
		}
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the YAML file path.
func (cfm *ConfigurableForeignKeyManager) GetConfigPath() string {
	return cfm.configPath
}
