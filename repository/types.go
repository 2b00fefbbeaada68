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

	"github.com/docauth/docauth/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines lookups and writes for a generic entity type.
type CrudRepository[T any] interface {
	// FindByID returns the entity whose primary key equals id, or nil.
	FindByID(ctx context.Context, id any) (*T, error)

	// FindOne returns the first entity matching opts, or nil.
	FindOne(ctx context.Context, opts *types.QueryOptions) (*T, error)

	// FindAll returns every entity matching opts without any row cap.
	FindAll(ctx context.Context, opts *types.QueryOptions) ([]*T, error)

	Create(ctx context.Context, entity *T) (*T, error)

	// CreateMany inserts entities in one statement and returns the persisted
	// rows, re-read so that generated columns are populated.
	CreateMany(ctx context.Context, entities []*T) ([]*T, error)

	Upsert(ctx context.Context, fields []string, conflictKeys []string, entity ...*T) error

	UpdateByID(ctx context.Context, id any, fields types.Fields) (int64, error)

	Update(ctx context.Context, criteria types.Criteria, fields types.Fields) (int64, error)

	DeleteByID(ctx context.Context, id any) (int64, error)

	Delete(ctx context.Context, criteria types.Criteria) (int64, error)
}

// CountRepository defines existence and cardinality checks.
type CountRepository[T any] interface {
	Count(ctx context.Context, opts *types.QueryOptions) (int, error)
	Exists(ctx context.Context, criteria types.Criteria) (bool, error)
}

// PageQueryRepository defines offset pagination and criteria search.
type PageQueryRepository[T any] interface {
	Paginate(ctx context.Context, opts *types.QueryOptions, page, limit int) (*types.Page[T], error)
	Search(ctx context.Context, criteria types.Criteria, opts *types.QueryOptions, page, limit int, sort *types.Sort) (*types.Page[T], error)
}

// Repository combines CRUD, counting and paged queries, and exposes Bun query
// builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	CountRepository[T]
	PageQueryRepository[T]

	// WithTx returns a repository for the same entity bound to tx.
	WithTx(tx bun.Tx) Repository[T]
	Metadata() *Metadata
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
