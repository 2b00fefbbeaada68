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

package repository

import (
	"database/sql"
	"reflect"
	"testing"

	"github.com/docauth/docauth/types"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// newPGDB returns a postgres-flavoured DB that is only used to render SQL.
// sql.Open does not dial, so no server is needed.
func newPGDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("postgres", "postgres://localhost:5432/docauth?sslmode=disable")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func memberCompiler(t *testing.T, name dialect.Name) *filterCompiler {
	t.Helper()
	db := newPGDB(t)
	meta := newMetadata(db.Dialect().Tables().Get(reflect.TypeFor[member]()))
	return newFilterCompiler(meta, name)
}

func TestFilterCompiler_Clauses(t *testing.T) {
	c := memberCompiler(t, dialect.SQLite)

	tests := []struct {
		name      string
		crit      types.Criterion
		qualified bool
		schema    string
		nargs     int
	}{
		{"eq", types.Eq("active"), true, "?TableAlias.? = ?", 2},
		{"eq unqualified", types.Eq("active"), false, "? = ?", 2},
		{"eq nil", types.Eq(nil), true, "?TableAlias.? IS NULL", 1},
		{"gt", types.Gt(3), true, "?TableAlias.? > ?", 2},
		{"lt", types.Lt(3), true, "?TableAlias.? < ?", 2},
		{"like", types.Like("ann"), true, "?TableAlias.? LIKE ?", 2},
		{"in", types.In(1, 2), true, "?TableAlias.? IN (?)", 2},
		{"empty in", types.In(), true, "1 = 0", 0},
		{"in single slice", types.In([]int64{1, 2}), true, "?TableAlias.? IN (?)", 2},
		{"in typed operand", types.Criterion{Op: types.OpIn, Value: []uint64{1}}, true, "?TableAlias.? IN (?)", 2},
		{"empty typed in", types.Criterion{Op: types.OpIn, Value: []string{}}, true, "1 = 0", 0},
		{"unknown operator", types.Criterion{Op: "regex", Value: "x"}, false, "? = ?", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := c.clause("status", tt.crit, tt.qualified)
			assert.Equal(t, tt.schema, f.Schema)
			require.Len(t, f.Args, tt.nargs)
			if tt.nargs > 0 {
				assert.Equal(t, bun.Ident("status"), f.Args[0])
			}
		})
	}
}

func TestFilterCompiler_LikeWrapsValue(t *testing.T) {
	c := memberCompiler(t, dialect.SQLite)
	f := c.clause("name", types.Like("ann"), false)
	assert.Equal(t, "%ann%", f.Args[1])
}

func TestFilterCompiler_SortedAndResolved(t *testing.T) {
	c := memberCompiler(t, dialect.SQLite)
	filters := c.compile(types.Criteria{
		"status": types.Eq("active"),
		"TeamID": types.Eq(int64(1)),
		"age":    types.Gt(30),
	}, true)

	require.Len(t, filters, 3)
	assert.Equal(t, bun.Ident("team_id"), filters[0].Args[0])
	assert.Equal(t, bun.Ident("age"), filters[1].Args[0])
	assert.Equal(t, bun.Ident("status"), filters[2].Args[0])
}

func TestFilterCompiler_PostgresUsesILike(t *testing.T) {
	db := newPGDB(t)
	repo := NewRepository[member](db).(*baseRepositoryImpl[member])
	assert.Equal(t, "ILIKE", repo.compiler.likeKeyword)

	query := applyFilters(
		db.NewSelect().Model((*member)(nil)),
		repo.compiler.compile(types.Criteria{
			"name":   types.Like("ann"),
			"status": types.In("active", "pending"),
		}, true),
	)
	sqlText := query.String()
	assert.Contains(t, sqlText, `"m"."name" ILIKE '%ann%'`)
	assert.Contains(t, sqlText, `"m"."status" IN ('active', 'pending')`)
}

func TestFilterCompiler_InExpandsSlices(t *testing.T) {
	db := newPGDB(t)
	repo := NewRepository[member](db).(*baseRepositoryImpl[member])

	query := applyFilters(
		db.NewSelect().Model((*member)(nil)),
		repo.compiler.compile(types.Criteria{
			"id":   types.In([]any{int64(3), int64(4)}),
			"age":  {Op: types.OpIn, Value: []uint64{20, 21}},
			"name": types.In([]string{"ann"}),
		}, true),
	)
	sqlText := query.String()
	assert.Contains(t, sqlText, `"m"."id" IN (3, 4)`)
	assert.Contains(t, sqlText, `"m"."age" IN (20, 21)`)
	assert.Contains(t, sqlText, `"m"."name" IN ('ann')`)
}

func TestFilterCompiler_UnqualifiedUpdate(t *testing.T) {
	db := newPGDB(t)
	repo := NewRepository[member](db).(*baseRepositoryImpl[member])

	query := applyFilters(
		db.NewDelete().Model((*member)(nil)),
		repo.compiler.compile(types.Criteria{"id": types.Eq(7)}, false),
	)
	assert.Contains(t, query.String(), `("id" = 7)`)
}
