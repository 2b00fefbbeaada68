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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/docauth/docauth/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

const updatedAtColumn = "updated_at"

type baseRepositoryImpl[T any] struct {
	db       bun.IDB
	meta     *Metadata
	compiler *filterCompiler
}

// NewRepository returns a generic repository for T backed by db, which may be
// a *bun.DB or a bun.Tx. T must be a Bun model struct.
func NewRepository[T any](db bun.IDB) Repository[T] {
	table := db.Dialect().Tables().Get(reflect.TypeFor[T]())
	meta := newMetadata(table)
	return &baseRepositoryImpl[T]{
		db:       db,
		meta:     meta,
		compiler: newFilterCompiler(meta, db.Dialect().Name()),
	}
}

func (r *baseRepositoryImpl[T]) WithTx(tx bun.Tx) Repository[T] {
	return &baseRepositoryImpl[T]{db: tx, meta: r.meta, compiler: r.compiler}
}

func (r *baseRepositoryImpl[T]) Metadata() *Metadata { return r.meta }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return r.FindOne(ctx, &types.QueryOptions{Where: r.pkCriteria(id)})
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, opts *types.QueryOptions) (*T, error) {
	entity := new(T)
	query := r.applyOptions(r.db.NewSelect().Model(entity), opts)
	query = r.applyOrder(query, opts.GetOrder())
	err := query.Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context, opts *types.QueryOptions) ([]*T, error) {
	entities := make([]*T, 0)
	query := r.applyOptions(r.db.NewSelect().Model(&entities), opts)
	query = r.applyOrder(query, opts.GetOrder())
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
		return nil, err
	}
	if r.meta.singlePK() == nil {
		return entity, nil
	}
	// Re-read so columns filled by database defaults are populated.
	if err := r.db.NewSelect().Model(entity).WherePK().Scan(ctx); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) CreateMany(ctx context.Context, entities []*T) ([]*T, error) {
	if len(entities) == 0 {
		return make([]*T, 0), nil
	}
	rows := make([]*T, len(entities))
	copy(rows, entities)

	if r.db.Dialect().Features().Has(feature.InsertReturning) {
		if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return nil, err
		}
	} else {
		// Without RETURNING only LastInsertId is available, which identifies a
		// single row, so rows are inserted one by one inside a transaction.
		err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, row := range rows {
				if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return r.reload(ctx, rows)
}

// reload fetches the persisted version of rows by primary key, keeping input
// order. Rows that cannot be found again are returned as given.
func (r *baseRepositoryImpl[T]) reload(ctx context.Context, rows []*T) ([]*T, error) {
	pk := r.meta.singlePK()
	if pk == nil {
		return rows, nil
	}
	ids := make([]any, len(rows))
	for i, row := range rows {
		ids[i] = r.meta.pkValue(row)
	}
	persisted := make([]*T, 0, len(rows))
	err := r.db.NewSelect().
		Model(&persisted).
		Where("?TableAlias.? IN (?)", bun.Ident(pk.Name), bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*T, len(persisted))
	for _, row := range persisted {
		byID[fmt.Sprint(r.meta.pkValue(row))] = row
	}
	result := make([]*T, len(rows))
	for i, row := range rows {
		if found, ok := byID[fmt.Sprint(ids[i])]; ok {
			result[i] = found
		} else {
			result[i] = row
		}
	}
	return result, nil
}

func (r *baseRepositoryImpl[T]) UpdateByID(ctx context.Context, id any, fields types.Fields) (int64, error) {
	return r.Update(ctx, r.pkCriteria(id), fields)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, criteria types.Criteria, fields types.Fields) (int64, error) {
	if len(fields) == 0 {
		return 0, ErrEmptyUpdate
	}
	query := r.db.NewUpdate().Model((*T)(nil))

	columns := make([]string, 0, len(fields))
	for name := range fields {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	touched := false
	for _, name := range columns {
		column := r.meta.Column(name)
		if column == updatedAtColumn {
			touched = true
		}
		query = query.Set("? = ?", bun.Ident(column), fields[name])
	}
	if !touched && r.meta.HasField(updatedAtColumn) {
		query = query.Set("? = ?", bun.Ident(updatedAtColumn), time.Now())
	}

	query = applyFilters(query, r.compiler.compile(criteria, false))
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	return r.Delete(ctx, r.pkCriteria(id))
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, criteria types.Criteria) (int64, error) {
	query := applyFilters(r.db.NewDelete().Model((*T)(nil)), r.compiler.compile(criteria, false))
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, opts *types.QueryOptions) (int, error) {
	query := r.applyOptions(r.db.NewSelect().Model((*T)(nil)), opts)
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, criteria types.Criteria) (bool, error) {
	query := applyFilters(r.db.NewSelect().Model((*T)(nil)), r.compiler.compile(criteria, true))
	return query.Exists(ctx)
}

func (r *baseRepositoryImpl[T]) Paginate(ctx context.Context, opts *types.QueryOptions, page, limit int) (*types.Page[T], error) {
	return r.Search(ctx, nil, opts, page, limit, nil)
}

func (r *baseRepositoryImpl[T]) Search(ctx context.Context, criteria types.Criteria, opts *types.QueryOptions, page, limit int, sort *types.Sort) (*types.Page[T], error) {
	if page < 1 || limit < 1 {
		return nil, ErrInvalidPagination
	}
	entities := make([]*T, 0, limit)
	query := r.db.NewSelect().Model(&entities)
	query = applyFilters(query, r.compiler.compile(criteria, true))
	query = r.applyOptions(query, opts)

	// An explicit sort replaces the option ordering.
	orders := opts.GetOrder()
	if sort != nil {
		orders = []types.Order{*sort}
	}
	query = r.applyOrder(query, orders)
	if !r.ordersByPK(orders) {
		query = query.OrderExpr("?TableAlias.? ASC", bun.Ident(r.meta.PrimaryKey))
	}

	total, err := query.
		Offset((page - 1) * limit).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, err
	}
	result := types.NewPage[T](page, limit)
	result.Data = entities
	result.Total = total
	return result, nil
}

// applyOptions applies relations, projection and where criteria. Ordering is
// left to applyOrder because search may replace it.
func (r *baseRepositoryImpl[T]) applyOptions(query *bun.SelectQuery, opts *types.QueryOptions) *bun.SelectQuery {
	if opts == nil {
		return query
	}
	for _, relation := range opts.Relations {
		query = query.Relation(r.meta.Relation(relation))
	}
	if len(opts.Select) > 0 {
		columns := make([]string, len(opts.Select))
		for i, field := range opts.Select {
			columns[i] = r.meta.Column(field)
		}
		query = query.Column(columns...)
	}
	return applyFilters(query, r.compiler.compile(opts.Where, true))
}

func (r *baseRepositoryImpl[T]) applyOrder(query *bun.SelectQuery, orders []types.Order) *bun.SelectQuery {
	for _, order := range orders {
		expr, args := r.compiler.order(order)
		query = query.OrderExpr(expr, args...)
	}
	return query
}

func (r *baseRepositoryImpl[T]) ordersByPK(orders []types.Order) bool {
	for _, order := range orders {
		if r.meta.Column(order.Field) == r.meta.PrimaryKey {
			return true
		}
	}
	return false
}

func (r *baseRepositoryImpl[T]) pkCriteria(id any) types.Criteria {
	return types.Criteria{r.meta.PrimaryKey: types.Eq(id)}
}

type whereQuery[Q any] interface {
	Where(query string, args ...any) Q
}

func applyFilters[Q whereQuery[Q]](query Q, filters []*types.QueryFilter) Q {
	for _, filter := range filters {
		query = query.Where(filter.Schema, filter.Args...)
	}
	return query
}
