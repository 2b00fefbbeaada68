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
	"path/filepath"
	"testing"

	"github.com/docauth/docauth/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeyConstraint_GenerateSQL(t *testing.T) {
	fk := ForeignKeyConstraint{
		Table:           "documents",
		Column:          "owner_id",
		ReferenceTable:  "users",
		ReferenceColumn: "id",
		OnDelete:        "cascade",
		OnUpdate:        "no action",
	}
	assert.Equal(t, "fk_documents_owner_id", fk.GenerateConstraintName())
	assert.Equal(t,
		"ALTER TABLE documents ADD CONSTRAINT fk_documents_owner_id FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE ON UPDATE NO ACTION",
		fk.GenerateSQL())

	fk.ConstraintName = "fk_doc_owner"
	fk.OnDelete, fk.OnUpdate = "", ""
	assert.Equal(t,
		"ALTER TABLE documents ADD CONSTRAINT fk_doc_owner FOREIGN KEY (owner_id) REFERENCES users(id)",
		fk.GenerateSQL())
}

func TestForeignKeyManager_Validate(t *testing.T) {
	fkm := &ForeignKeyManager{constraints: []ForeignKeyConstraint{
		{Table: "documents", Column: "owner_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "SET NULL"},
		{Table: "documents", Column: "", ReferenceTable: "users", ReferenceColumn: "id"},
		{Table: "audits", Column: "user_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "explode", OnUpdate: "melt"},
	}}
	errs := fkm.ValidateConstraints()
	assert.Len(t, errs, 3)

	assert.Len(t, fkm.GetConstraintsByTable("DOCUMENTS"), 2)
	assert.Empty(t, fkm.GetConstraintsByTable("users"))
	assert.Len(t, fkm.ListAllConstraints(), 3)
}

func TestRegisterForeignKeys_ReplacesByName(t *testing.T) {
	before := getForeignKeyConstraints()
	t.Cleanup(func() {
		defaultForeignKeysMu.Lock()
		defaultForeignKeys = before
		defaultForeignKeysMu.Unlock()
	})

	RegisterForeignKeys(ForeignKeyConstraint{Table: "t1", Column: "c", ReferenceTable: "r", ReferenceColumn: "id", OnDelete: "CASCADE"})
	RegisterForeignKeys(ForeignKeyConstraint{Table: "t1", Column: "c", ReferenceTable: "r", ReferenceColumn: "id", OnDelete: "RESTRICT"})

	var matches []ForeignKeyConstraint
	for _, fk := range getForeignKeyConstraints() {
		if fk.GenerateConstraintName() == "fk_t1_c" {
			matches = append(matches, fk)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "RESTRICT", matches[0].OnDelete)
}

func TestConfigurableForeignKeyManager_ExportAndReload(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "fk.yaml"), `
foreign_keys:
  - table: documents
    column: owner_id
    reference_table: users
    reference_column: id
    on_delete: CASCADE
  - table: certificates
    column: document_id
    reference_table: documents
    reference_column: id
    constraint_name: fk_cert_doc
`)
	mgr := NewConfigurableForeignKeyManager(nil, source)
	require.Len(t, mgr.ListAllConstraints(), 2)
	assert.Equal(t, source, mgr.GetConfigPath())
	assert.Empty(t, mgr.ValidateConstraints())

	exported := filepath.Join(dir, "nested", "out.yaml")
	require.NoError(t, mgr.ExportToConfig(exported))

	again := NewConfigurableForeignKeyManager(nil, exported)
	assert.Equal(t, mgr.ListAllConstraints(), again.ListAllConstraints())

	writeFile(t, exported, "foreign_keys: []\n")
	require.NoError(t, again.ReloadConfig())
	assert.Empty(t, again.ListAllConstraints())
}

func TestConfigurableForeignKeyManager_FallsBackToRegistered(t *testing.T) {
	mgr := NewConfigurableForeignKeyManager(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, getForeignKeyConstraints(), mgr.ListAllConstraints())
	assert.Error(t, mgr.ReloadConfig())
}

func TestForeignKeyManager_AddAllSkipsFailures(t *testing.T) {
	db := testdb.New(t)
	fkm := &ForeignKeyManager{constraints: []ForeignKeyConstraint{
		{Table: "missing", Column: "x", ReferenceTable: "other", ReferenceColumn: "id"},
	}}
	// SQLite rejects ALTER TABLE ADD CONSTRAINT; the failure is logged only.
	assert.NoError(t, fkm.AddAllForeignKeys(context.Background(), db))
}
