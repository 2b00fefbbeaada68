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

// Package docauth exposes generic data-access services over the docauth
// schema.
package docauth

import (
	"context"
	"sync"

	"github.com/docauth/docauth/database"
	"github.com/docauth/docauth/repository"
	"github.com/docauth/docauth/types"

	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil.
	Get(ctx context.Context, id any) (*T, error)

	// Find returns the first entity matching opts, or nil.
	Find(ctx context.Context, opts *types.QueryOptions) (*T, error)

	// All returns every entity matching opts.
	All(ctx context.Context, opts *types.QueryOptions) ([]*T, error)

	// Save inserts an entity and returns the persisted row.
	Save(ctx context.Context, model *T) (*T, error)

	// SaveMany inserts entities in bulk and returns the persisted rows.
	SaveMany(ctx context.Context, models []*T) ([]*T, error)

	// SaveOrUpdate upserts entities based on fields and conflict keys.
	SaveOrUpdate(ctx context.Context, fields []string, conflictKeys []string, model ...*T) error

	// Update applies fields to the entity with the given identifier.
	Update(ctx context.Context, id any, fields types.Fields) (int64, error)

	// UpdateWhere applies fields to every entity matching criteria.
	UpdateWhere(ctx context.Context, criteria types.Criteria, fields types.Fields) (int64, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) (int64, error)

	// DeleteWhere removes every entity matching criteria.
	DeleteWhere(ctx context.Context, criteria types.Criteria) (int64, error)

	Count(ctx context.Context, opts *types.QueryOptions) (int, error)

	Exists(ctx context.Context, criteria types.Criteria) (bool, error)

	// Page returns one page of entities matching opts.
	Page(ctx context.Context, opts *types.QueryOptions, page, limit int) (*types.Page[T], error)

	// Search returns one page of entities matching criteria and opts.
	Search(ctx context.Context, criteria types.Criteria, opts *types.QueryOptions, page, limit int, sort *types.Sort) (*types.Page[T], error)

	// Query runs a search described by a page request. Out-of-range page
	// and limit values fall back to the defaults.
	Query(ctx context.Context, req *types.PageRequest) (*types.Page[T], error)

	// WithTx returns a service bound to tx.
	WithTx(tx bun.Tx) Service[T]

	// SelectBuilder returns a Bun select query builder. The builders return
	// nil when the service has no database to bind to.
	SelectBuilder() *bun.SelectQuery

	// InsertBuilder returns a Bun insert query builder.
	InsertBuilder() *bun.InsertQuery

	// UpdateBuilder returns a Bun update query builder.
	UpdateBuilder() *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete query builder.
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	mu     sync.Mutex
	repo   repository.Repository[T]
	bound  *bun.DB
	source func() *bun.DB
}

// NewService returns a Service backed by the global database connection. The
// repository is bound on first use and rebound when the global database is
// replaced, so the service may be built before database.InitDB runs. Calls
// made while no database is initialized return database.ErrNotInitialized.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{source: database.GetDB}
}

// NewServiceWithDB returns a Service backed by db.
func NewServiceWithDB[T any](db bun.IDB) Service[T] {
	return &baseServiceImpl[T]{repo: repository.NewRepository[T](db)}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	if s.source == nil {
		return s.repo, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.source()
	if db == nil {
		return nil, database.ErrNotInitialized
	}
	if db != s.bound {
		s.repo = repository.NewRepository[T](db)
		s.bound = db
	}
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, opts *types.QueryOptions) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindOne(ctx, opts)
}

func (s *baseServiceImpl[T]) All(ctx context.Context, opts *types.QueryOptions) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx, opts)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, model)
}

func (s *baseServiceImpl[T]) SaveMany(ctx context.Context, models []*T) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.CreateMany(ctx, models)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, conflictKeys []string, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, fields, conflictKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, id any, fields types.Fields) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.UpdateByID(ctx, id, fields)
}

func (s *baseServiceImpl[T]) UpdateWhere(ctx context.Context, criteria types.Criteria, fields types.Fields) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Update(ctx, criteria, fields)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) DeleteWhere(ctx context.Context, criteria types.Criteria) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Delete(ctx, criteria)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, opts *types.QueryOptions) (int, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, opts)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, criteria types.Criteria) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.Exists(ctx, criteria)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, opts *types.QueryOptions, page, limit int) (*types.Page[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Paginate(ctx, opts, page, limit)
}

func (s *baseServiceImpl[T]) Search(ctx context.Context, criteria types.Criteria, opts *types.QueryOptions, page, limit int, sort *types.Sort) (*types.Page[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Search(ctx, criteria, opts, page, limit, sort)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, req *types.PageRequest) (*types.Page[T], error) {
	if req == nil {
		req = types.NewDefaultPageRequest(types.DefaultPage, types.DefaultLimit)
	}
	return s.Search(ctx, req.GetCriteria(), req.GetOptions(), req.GetPage(), req.GetLimit(), req.GetSort())
}

// WithTx binds a new service to tx. It does not need the global database.
func (s *baseServiceImpl[T]) WithTx(tx bun.Tx) Service[T] {
	return &baseServiceImpl[T]{repo: repository.NewRepository[T](tx)}
}

// builderRepo returns nil while the global database is not initialized.
func (s *baseServiceImpl[T]) builderRepo() repository.Repository[T] {
	repo, err := s.baseRepo()
	if err != nil {
		return nil
	}
	return repo
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	if repo := s.builderRepo(); repo != nil {
		return repo.NewSelect()
	}
	return nil
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	if repo := s.builderRepo(); repo != nil {
		return repo.NewInsert()
	}
	return nil
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	if repo := s.builderRepo(); repo != nil {
		return repo.NewUpdate()
	}
	return nil
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	if repo := s.builderRepo(); repo != nil {
		return repo.NewDelete()
	}
	return nil
}
