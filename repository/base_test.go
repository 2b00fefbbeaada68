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
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docauth/docauth/internal/testdb"
	"github.com/docauth/docauth/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID      int64     `bun:"id,pk,autoincrement"`
	Name    string    `bun:"name,notnull"`
	Members []*member `bun:"rel:has-many,join:id=team_id"`
}

type member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Status    string    `bun:"status,notnull"`
	Age       int       `bun:"age,notnull"`
	TeamID    *int64    `bun:"team_id"`
	Team      *team     `bun:"rel:belongs-to,join:team_id=id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func setup(t *testing.T) (*bun.DB, Repository[member]) {
	t.Helper()
	db := testdb.New(t, (*team)(nil), (*member)(nil))
	return db, NewRepository[member](db)
}

// seedMembers inserts n members aged 20+i. Members for which active returns
// true get status "active", the rest "inactive".
func seedMembers(t *testing.T, repo Repository[member], n int, active func(i int) bool) []*member {
	t.Helper()
	rows := make([]*member, n)
	for i := range rows {
		status := "inactive"
		if active(i) {
			status = "active"
		}
		rows[i] = &member{Name: fmt.Sprintf("member-%02d", i), Status: status, Age: 20 + i}
	}
	created, err := repo.CreateMany(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, created, n)
	return created
}

func ids(rows []*member) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestRepository_CreateAndFindByID(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &member{Name: "Anna", Status: "active", Age: 31})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero(), "database default should be read back")

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Anna", found.Name)
	assert.Equal(t, "active", found.Status)
	assert.Equal(t, 31, found.Age)
}

func TestRepository_FindMissingReturnsNil(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()

	found, err := repo.FindByID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindOne(ctx, types.NewQueryOptions().WithWhere("name", types.Eq("nobody")))
	require.NoError(t, err)
	assert.Nil(t, found)

	all, err := repo.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRepository_CreateManyReturnsPersistedRows(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()

	input := []*member{
		{Name: "c", Status: "active", Age: 3},
		{Name: "a", Status: "active", Age: 1},
		{Name: "b", Status: "inactive", Age: 2},
	}
	created, err := repo.CreateMany(ctx, input)
	require.NoError(t, err)
	require.Len(t, created, 3)

	seen := map[int64]bool{}
	for i, row := range created {
		assert.NotZero(t, row.ID)
		assert.False(t, seen[row.ID], "duplicate id %d", row.ID)
		seen[row.ID] = true
		assert.Equal(t, input[i].Name, row.Name, "input order is kept")
		assert.False(t, row.CreatedAt.IsZero())

		found, err := repo.FindByID(ctx, row.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, input[i].Name, found.Name)
		assert.Equal(t, input[i].Age, found.Age)
	}
}

func TestRepository_CreateManyEmpty(t *testing.T) {
	_, repo := setup(t)
	created, err := repo.CreateMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestRepository_SearchFiltersAndPages(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	seedMembers(t, repo, 25, func(i int) bool { return i < 15 })

	page, err := repo.Search(ctx, types.Criteria{"status": types.Eq("active")}, nil, 2, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Data, 5)
	for _, row := range page.Data {
		assert.Equal(t, "active", row.Status)
	}
	assert.Equal(t, 2, page.TotalPages())
	assert.False(t, page.HasNext())

	count, err := repo.Count(ctx, types.NewQueryOptions().WithWhere("status", types.Eq("active")))
	require.NoError(t, err)
	assert.Equal(t, page.Total, count)
}

func TestRepository_SearchBeyondLastPage(t *testing.T) {
	_, repo := setup(t)
	seedMembers(t, repo, 3, func(int) bool { return true })

	page, err := repo.Search(context.Background(), nil, nil, 5, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestRepository_SearchOperators(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	for _, m := range []*member{
		{Name: "Anna", Status: "active", Age: 25},
		{Name: "Joanne", Status: "inactive", Age: 35},
		{Name: "Bob", Status: "active", Age: 40},
		{Name: "Carl", Status: "active", Age: 30},
	} {
		_, err := repo.Create(ctx, m)
		require.NoError(t, err)
	}

	byName := &types.Sort{Field: "name", Direction: types.ASC}
	names := func(criteria types.Criteria) []string {
		t.Helper()
		page, err := repo.Search(ctx, criteria, nil, 1, 100, byName)
		require.NoError(t, err)
		out := make([]string, len(page.Data))
		for i, row := range page.Data {
			out[i] = row.Name
		}
		assert.Equal(t, len(out), page.Total)
		return out
	}

	tests := []struct {
		name     string
		criteria types.Criteria
		want     []string
	}{
		{"gt", types.Criteria{"age": types.Gt(30)}, []string{"Bob", "Joanne"}},
		{"lt", types.Criteria{"age": types.Lt(30)}, []string{"Anna"}},
		{"like is a substring match", types.Criteria{"name": types.Like("ann")}, []string{"Anna", "Joanne"}},
		{"in", types.Criteria{"name": types.In("Bob", "Carl", "Zed")}, []string{"Bob", "Carl"}},
		{"empty in matches nothing", types.Criteria{"name": types.In()}, []string{}},
		{"in with a single slice argument", types.Criteria{"name": types.In([]any{"Anna", "Bob"})}, []string{"Anna", "Bob"}},
		{"in with a typed slice operand", types.Criteria{"age": {Op: types.OpIn, Value: []uint64{25, 35}}}, []string{"Anna", "Joanne"}},
		{"in with a float slice", types.Criteria{"age": types.In([]float64{30, 40})}, []string{"Bob", "Carl"}},
		{"conjunction", types.Criteria{"age": types.Gt(26), "status": types.Eq("active")}, []string{"Bob", "Carl"}},
		{"unknown operator compares for equality", types.Criteria{"status": {Op: "between", Value: "inactive"}}, []string{"Joanne"}},
		{"go field name resolves", types.Criteria{"Age": types.Eq(40)}, []string{"Bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(tt.criteria))
		})
	}
}

func TestRepository_EqNilMatchesNull(t *testing.T) {
	db, repo := setup(t)
	ctx := context.Background()

	tm := &team{Name: "core"}
	_, err := db.NewInsert().Model(tm).Exec(ctx)
	require.NoError(t, err)

	_, err = repo.Create(ctx, &member{Name: "a", Status: "active", TeamID: &tm.ID})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &member{Name: "b", Status: "active"})
	require.NoError(t, err)

	rows, err := repo.FindAll(ctx, types.NewQueryOptions().WithWhere("team_id", types.Eq(nil)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].Name)
}

func TestRepository_PaginationCoversEveryRowOnce(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	created := seedMembers(t, repo, 10, func(int) bool { return true })

	var collected []int64
	for p := 1; p <= 3; p++ {
		page, err := repo.Paginate(ctx, nil, p, 4)
		require.NoError(t, err)
		assert.Equal(t, 10, page.Total)
		collected = append(collected, ids(page.Data)...)
	}
	assert.Equal(t, ids(created), collected)
}

func TestRepository_SortReplacesOptionOrder(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	seedMembers(t, repo, 5, func(int) bool { return true })

	opts := types.NewQueryOptions().WithOrder("name", types.ASC)
	page, err := repo.Search(ctx, nil, opts, 1, 2, &types.Sort{Field: "age", Direction: "desc"})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 24, page.Data[0].Age)
	assert.Equal(t, 23, page.Data[1].Age)
}

func TestRepository_SearchCombinesOptionWhere(t *testing.T) {
	_, repo := setup(t)
	seedMembers(t, repo, 10, func(i int) bool { return i%2 == 0 })

	opts := types.NewQueryOptions().WithWhere("age", types.Gt(25))
	page, err := repo.Search(context.Background(), types.Criteria{"status": types.Eq("active")}, opts, 1, 10, nil)
	require.NoError(t, err)
	// active ages are 20, 22, 24, 26, 28
	assert.Equal(t, 2, page.Total)
}

func TestRepository_SameFieldInCriteriaAndOptions(t *testing.T) {
	_, repo := setup(t)
	seedMembers(t, repo, 10, func(int) bool { return true })

	opts := types.NewQueryOptions().WithWhere("age", types.Lt(25))
	page, err := repo.Search(context.Background(), types.Criteria{"age": types.Gt(21)}, opts, 1, 10, nil)
	require.NoError(t, err)
	ages := make([]int, len(page.Data))
	for i, row := range page.Data {
		ages[i] = row.Age
	}
	assert.Equal(t, []int{22, 23, 24}, ages)
}

func TestRepository_InvalidPagination(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()

	_, err := repo.Search(ctx, nil, nil, 0, 10, nil)
	assert.ErrorIs(t, err, ErrInvalidPagination)
	_, err = repo.Paginate(ctx, nil, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPagination)
}

func TestRepository_Relations(t *testing.T) {
	db, _ := setup(t)
	ctx := context.Background()

	tm := &team{Name: "core"}
	_, err := db.NewInsert().Model(tm).Exec(ctx)
	require.NoError(t, err)

	members := NewRepository[member](db)
	_, err = members.CreateMany(ctx, []*member{
		{Name: "a", Status: "active", TeamID: &tm.ID},
		{Name: "b", Status: "active", TeamID: &tm.ID},
	})
	require.NoError(t, err)

	withTeam, err := members.FindAll(ctx, types.NewQueryOptions().WithRelations("team").WithOrder("name", types.ASC))
	require.NoError(t, err)
	require.Len(t, withTeam, 2)
	for _, m := range withTeam {
		require.NotNil(t, m.Team)
		assert.Equal(t, "core", m.Team.Name)
	}

	withoutTeam, err := members.FindAll(ctx, nil)
	require.NoError(t, err)
	for _, m := range withoutTeam {
		assert.Nil(t, m.Team)
	}

	teams := NewRepository[team](db)
	found, err := teams.FindOne(ctx, &types.QueryOptions{
		Relations: types.RelationSet(map[string]any{"members": true}),
		Where:     types.Criteria{"name": types.Eq("core")},
	})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.Members, 2)
}

func TestRepository_SearchWithRelationQualifiesColumns(t *testing.T) {
	db, repo := setup(t)
	ctx := context.Background()

	tm := &team{Name: "core"}
	_, err := db.NewInsert().Model(tm).Exec(ctx)
	require.NoError(t, err)
	_, err = repo.Create(ctx, &member{Name: "a", Status: "active", TeamID: &tm.ID})
	require.NoError(t, err)

	// Both tables have "id" and "name"; unqualified columns would be ambiguous.
	page, err := repo.Search(ctx, types.Criteria{"name": types.Eq("a")},
		types.NewQueryOptions().WithRelations("team"), 1, 10, &types.Sort{Field: "id"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Team)
	assert.Equal(t, "core", page.Data[0].Team.Name)
}

func TestRepository_SelectProjectsFields(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, &member{Name: "Anna", Status: "active", Age: 31})
	require.NoError(t, err)

	rows, err := repo.FindAll(ctx, types.NewQueryOptions().WithSelect("id", "name"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Anna", rows[0].Name)
	assert.Empty(t, rows[0].Status)
	assert.Zero(t, rows[0].Age)
}

func TestRepository_Update(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	created := seedMembers(t, repo, 4, func(i int) bool { return i < 2 })

	affected, err := repo.Update(ctx, types.Criteria{"status": types.Eq("inactive")}, types.Fields{"status": "archived"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = repo.UpdateByID(ctx, created[0].ID, types.Fields{"Name": "renamed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	found, err := repo.FindByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", found.Name)

	count, err := repo.Count(ctx, types.NewQueryOptions().WithWhere("status", types.Eq("archived")))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	affected, err = repo.UpdateByID(ctx, 9999, types.Fields{"name": "ghost"})
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestRepository_UpdateRequiresFields(t *testing.T) {
	_, repo := setup(t)
	_, err := repo.UpdateByID(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrEmptyUpdate)
}

func TestRepository_DeleteIsIdempotent(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	created := seedMembers(t, repo, 3, func(int) bool { return true })

	affected, err := repo.DeleteByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.DeleteByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = repo.Delete(ctx, types.Criteria{"id": types.In(created[1].ID, created[2].ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_CountAndExists(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	seedMembers(t, repo, 6, func(i int) bool { return i < 4 })

	count, err := repo.Count(ctx, types.NewQueryOptions().WithWhere("status", types.Eq("active")))
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	ok, err := repo.Exists(ctx, types.Criteria{"status": types.Eq("inactive")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, types.Criteria{"status": types.Eq("archived")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_Upsert(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	created, err := repo.Create(ctx, &member{Name: "old", Status: "active", Age: 1})
	require.NoError(t, err)

	err = repo.Upsert(ctx, []string{"name", "age"}, nil,
		&member{ID: created.ID, Name: "new", Status: "active", Age: 2})
	require.NoError(t, err)
	err = repo.Upsert(ctx, []string{"name", "age"}, nil,
		&member{Name: "fresh", Status: "active", Age: 3})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", found.Name)
	assert.Equal(t, 2, found.Age)

	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, repo.Upsert(ctx, nil, nil, created), ErrEmptyUpdate)
	assert.ErrorIs(t, repo.Upsert(ctx, []string{"name"}, nil), ErrNoEntities)
}

type label struct {
	bun.BaseModel `bun:"table:labels,alias:l"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Code  string `bun:"code,notnull,unique"`
	Title string `bun:"title"`
}

// The fallback path serves dialects without an upsert clause; sqlite has one,
// so it is called directly here.
func TestRepository_UpsertFallback(t *testing.T) {
	db := testdb.New(t, (*label)(nil))
	repo := NewRepository[label](db).(*baseRepositoryImpl[label])
	ctx := context.Background()

	existing, err := repo.Create(ctx, &label{Code: "a", Title: "old"})
	require.NoError(t, err)

	err = repo.upsertFallback(ctx, []string{"title"}, []*label{
		{ID: existing.ID, Code: "ignored", Title: "new"},
		{Code: "b", Title: "fresh"},
		{ID: 99, Code: "c", Title: "explicit id"},
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", found.Title)
	assert.Equal(t, "a", found.Code)

	found, err = repo.FindByID(ctx, 99)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c", found.Code)

	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// A duplicate code fails the second insert and rolls back the update.
	err = repo.upsertFallback(ctx, []string{"title"}, []*label{
		{ID: existing.ID, Code: "a", Title: "lost"},
		{Code: "b", Title: "duplicate"},
	})
	require.Error(t, err)

	found, err = repo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", found.Title)

	count, err = repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRepository_WithTx(t *testing.T) {
	db, repo := setup(t)
	ctx := context.Background()

	var createdID int64
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := repo.WithTx(tx).Create(ctx, &member{Name: "tx", Status: "active"})
		if err != nil {
			return err
		}
		createdID = created.ID
		return errors.New("rollback")
	})
	require.EqualError(t, err, "rollback")
	require.NotZero(t, createdID)

	found, err := repo.FindByID(ctx, createdID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_Metadata(t *testing.T) {
	_, repo := setup(t)
	meta := repo.Metadata()

	assert.Equal(t, "members", meta.Table)
	assert.Equal(t, "m", meta.Alias)
	assert.Equal(t, "id", meta.PrimaryKey)
	assert.Contains(t, meta.Fields, "team_id")
	assert.Contains(t, meta.Relations, "Team")

	assert.Equal(t, "team_id", meta.Column("teamId"))
	assert.Equal(t, "team_id", meta.Column("TeamID"))
	assert.Equal(t, "unknown", meta.Column("unknown"))
	assert.Equal(t, "Team", meta.Relation("team"))
	assert.True(t, meta.HasField("updated_at"))
}
