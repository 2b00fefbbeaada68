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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docauth/docauth/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRender(t *testing.T) {
	status := &database.HealthStatus{Healthy: true, Connected: true}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", status))
	assert.Contains(t, buf.String(), `"healthy": true`)

	buf.Reset()
	require.NoError(t, render(&buf, "YAML", status))
	assert.Contains(t, buf.String(), "healthy: true")

	assert.Error(t, render(&buf, "xml", status))
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docauth.yaml")
	content := `
connection:
  type: sqlite
  dbname: "file:cli_test?mode=memory&cache=shared"
  max_open_conns: 1
  health_check_interval: 0
  logging: "false"
migrate:
  foreign_key_file: ` + filepath.Join(dir, "missing_fk.yaml") + `
init:
  filepath: ` + filepath.Join(dir, "sql") + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMigrateAndHealthCommands(t *testing.T) {
	config := writeConfig(t)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--config", config, "--output", "json"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "create_base_tables")

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"health", "--config", config})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "healthy: true")
}

func TestForeignKeyExport(t *testing.T) {
	config := writeConfig(t)
	target := filepath.Join(t.TempDir(), "fk.yaml")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"fk", "export", target, "--config", config})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reference_table: users")
}

func TestMissingConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"stats", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestMigrateDryRun(t *testing.T) {
	config := writeConfig(t)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--dry-run", "--config", config})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "version: \"001\"")
	assert.Contains(t, out.String(), "name: create_base_tables")
}

func TestSeedCommand(t *testing.T) {
	config := writeConfig(t)
	seedFile := filepath.Join(filepath.Dir(config), "sql", "environments", "staging", "001_noop.sql")
	require.NoError(t, os.MkdirAll(filepath.Dir(seedFile), 0o755))
	require.NoError(t, os.WriteFile(seedFile, []byte("SELECT 1;\n"), 0o644))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed", "--env", "staging", "--config", config, "-o", "json"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"file": "environments/staging/001_noop.sql"`)
	assert.Contains(t, out.String(), `"statements": 1`)
}

func TestHashPassword(t *testing.T) {
	for _, args := range [][]string{
		{"hash-password", "s3cret", "--cost", "4"},
		{"hash-password", "--cost", "4"},
	} {
		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader("s3cret\n"))
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())

		hash := strings.TrimSpace(out.String())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
	}

	cmd := newRootCommand()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"hash-password"})
	assert.ErrorContains(t, cmd.Execute(), "password cannot be empty")
}
