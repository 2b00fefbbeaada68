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
	"fmt"

	"github.com/docauth/docauth/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// filterCompiler turns criteria into WHERE clauses. Every clause carries its
// own positional arguments, so clauses compiled from different sources (the
// primary criteria and options.Where) can be combined without any parameter
// naming scheme and cannot collide.
type filterCompiler struct {
	meta        *Metadata
	likeKeyword string
}

func newFilterCompiler(meta *Metadata, name dialect.Name) *filterCompiler {
	like := "LIKE"
	// LIKE is case-sensitive on postgres, case-insensitive on sqlite and on
	// mysql's default collations.
	if name == dialect.PG {
		like = "ILIKE"
	}
	return &filterCompiler{meta: meta, likeKeyword: like}
}

// compile emits one filter per criteria entry in sorted field order. When
// qualified is set, columns are prefixed with the model's table alias, which
// is required once relations are joined into a SELECT.
func (c *filterCompiler) compile(criteria types.Criteria, qualified bool) []*types.QueryFilter {
	filters := make([]*types.QueryFilter, 0, len(criteria))
	for _, field := range criteria.Fields() {
		filters = append(filters, c.clause(field, criteria[field], qualified))
	}
	return filters
}

func (c *filterCompiler) clause(field string, crit types.Criterion, qualified bool) *types.QueryFilter {
	col := columnExpr(qualified)
	ident := bun.Ident(c.meta.Column(field))

	switch crit.Op {
	case types.OpGt:
		return types.NewQueryFilter(col+" > ?", ident, crit.Value)
	case types.OpLt:
		return types.NewQueryFilter(col+" < ?", ident, crit.Value)
	case types.OpLike:
		return types.NewQueryFilter(col+" "+c.likeKeyword+" ?", ident, fmt.Sprintf("%%%v%%", crit.Value))
	case types.OpIn:
		values := crit.Values()
		if len(values) == 0 {
			return types.NewQueryFilter("1 = 0")
		}
		return types.NewQueryFilter(col+" IN (?)", ident, bun.In(values))
	default:
		// eq and any unrecognized operator compare for equality.
		if crit.Value == nil {
			return types.NewQueryFilter(col+" IS NULL", ident)
		}
		return types.NewQueryFilter(col+" = ?", ident, crit.Value)
	}
}

func columnExpr(qualified bool) string {
	if qualified {
		return "?TableAlias.?"
	}
	return "?"
}

func (c *filterCompiler) order(o types.Order) (string, []any) {
	return "?TableAlias.? " + string(o.Direction.Normalize()), []any{bun.Ident(c.meta.Column(o.Field))}
}
