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
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

// Upsert inserts entities and, on conflict with conflictKeys (the primary key
// when empty), overwrites the listed fields. The conflict clause is picked
// from the dialect's capabilities.
func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, conflictKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return ErrEmptyUpdate
	}
	if len(entity) == 0 {
		return ErrNoEntities
	}
	entities := make([]*T, len(entity))
	copy(entities, entity)

	features := r.db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, fields, conflictKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, fields, entities)
	default:
		return r.upsertFallback(ctx, fields, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, fields, conflictKeys []string, entities []*T) error {
	if len(conflictKeys) == 0 {
		conflictKeys = []string{r.meta.PrimaryKey}
	}
	placeholders := make([]string, len(conflictKeys))
	keys := make([]any, len(conflictKeys))
	for i, key := range conflictKeys {
		placeholders[i] = "?"
		keys[i] = bun.Ident(r.meta.Column(key))
	}
	query := r.db.NewInsert().
		Model(&entities).
		On("CONFLICT ("+strings.Join(placeholders, ", ")+") DO UPDATE", keys...)
	for _, field := range fields {
		column := bun.Ident(r.meta.Column(field))
		query = query.Set("? = EXCLUDED.?", column, column)
	}
	_, err := query.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, fields []string, entities []*T) error {
	query := r.db.NewInsert().
		Model(&entities).
		On("DUPLICATE KEY UPDATE")
	for _, field := range fields {
		column := bun.Ident(r.meta.Column(field))
		query = query.Set("? = VALUES(?)", column, column)
	}
	_, err := query.Exec(ctx)
	return err
}

// upsertFallback updates the listed fields of entities that already exist by
// primary key and inserts the rest. Conflict keys other than the primary key
// are not consulted. All rows are written in one transaction.
func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, fields []string, entities []*T) error {
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = r.meta.Column(field)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, entity := range entities {
			exists := false
			if r.meta.hasPK(entity) {
				var err error
				if exists, err = tx.NewSelect().Model(entity).WherePK().Exists(ctx); err != nil {
					return fmt.Errorf("upsert entity %d: %w", i, err)
				}
			}
			var err error
			if exists {
				_, err = tx.NewUpdate().Model(entity).Column(columns...).WherePK().Exec(ctx)
			} else {
				_, err = tx.NewInsert().Model(entity).Exec(ctx)
			}
			if err != nil {
				return fmt.Errorf("upsert entity %d: %w", i, err)
			}
		}
		return nil
	})
}
