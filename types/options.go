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

package types

import (
	"sort"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Normalize maps anything other than a case-insensitive "desc" to ASC.
func (d Direction) Normalize() Direction {
	if strings.EqualFold(strings.TrimSpace(string(d)), string(DESC)) {
		return DESC
	}
	return ASC
}

// Order is one ORDER BY term.
type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"order"`
}

// Sort is the single-field ordering accepted by search.
type Sort = Order

// Fields is a partial column set applied by update operations.
type Fields map[string]any

// QueryOptions holds the recognized query options: relations to load eagerly,
// the projected columns, extra AND-joined criteria and ordering.
type QueryOptions struct {
	Relations []string `json:"relations,omitempty"`
	Select    []string `json:"select,omitempty"`
	Where     Criteria `json:"where,omitempty"`
	Order     []Order  `json:"order,omitempty"`
}

// NewQueryOptions returns empty options.
func NewQueryOptions() *QueryOptions {
	return &QueryOptions{}
}

// GetOrder returns the ordering terms. It is safe on nil options.
func (o *QueryOptions) GetOrder() []Order {
	if o == nil {
		return nil
	}
	return o.Order
}

// WithRelations appends relations to load.
func (o *QueryOptions) WithRelations(names ...string) *QueryOptions {
	o.Relations = append(o.Relations, names...)
	return o
}

// WithSelect restricts the projected columns.
func (o *QueryOptions) WithSelect(fields ...string) *QueryOptions {
	o.Select = append(o.Select, fields...)
	return o
}

// WithWhere adds a where criterion.
func (o *QueryOptions) WithWhere(field string, c Criterion) *QueryOptions {
	if o.Where == nil {
		o.Where = make(Criteria)
	}
	o.Where[field] = c
	return o
}

// WithOrder appends an ORDER BY term.
func (o *QueryOptions) WithOrder(field string, dir Direction) *QueryOptions {
	o.Order = append(o.Order, Order{Field: field, Direction: dir})
	return o
}

// RelationSet builds a relation list from the mapping form used by callers that
// describe relations as {"owner": true, "certificates": {...}}. Only the keys
// are significant; nested values are ignored.
func RelationSet(relations map[string]any) []string {
	names := make([]string, 0, len(relations))
	for name := range relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
