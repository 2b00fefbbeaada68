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

// Package testdb opens isolated in-memory SQLite databases for tests.
package testdb

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// DSN returns a shared-cache in-memory DSN private to name.
func DSN(name string) string {
	return "file:" + unsafeChars.ReplaceAllString(name, "_") + "?mode=memory&cache=shared"
}

// New opens a database named after the test, creates tables for models and
// closes it when the test ends.
func New(t testing.TB, models ...any) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, DSN(t.Name()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err, "create table for %T", model)
	}
	return db
}
