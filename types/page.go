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

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []any
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...any) *QueryFilter {
	return &QueryFilter{schema, args}
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest describes a page of a search: position, criteria, options and
// an optional sort. Out-of-range page or limit values fall back to defaults.
type PageRequest struct {
	page     int
	limit    int
	criteria Criteria
	options  *QueryOptions
	sort     *Sort
}

func (p *PageRequest) GetLimit() int {
	if p.limit < 1 {
		p.limit = DefaultLimit
	}
	return p.limit
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = DefaultPage
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetLimit()
}

func (p *PageRequest) GetCriteria() Criteria {
	return p.criteria
}

func (p *PageRequest) GetOptions() *QueryOptions {
	return p.options
}

func (p *PageRequest) GetSort() *Sort {
	return p.sort
}

// NewPageRequest constructs a PageRequest with criteria, options and sort.
func NewPageRequest(page int, limit int, criteria Criteria, options *QueryOptions, sort *Sort) *PageRequest {
	return &PageRequest{page, limit, criteria, options, sort}
}

// NewPageRequestWithCriteria constructs a PageRequest with criteria only.
func NewPageRequestWithCriteria(page int, limit int, criteria Criteria) *PageRequest {
	return NewPageRequest(page, limit, criteria, nil, nil)
}

// NewDefaultPageRequest constructs a PageRequest matching every row.
func NewDefaultPageRequest(page int, limit int) *PageRequest {
	return NewPageRequest(page, limit, nil, nil, nil)
}

// Page holds one slice of matching rows plus the total match count.
type Page[T any] struct {
	Data  []*T `json:"data"`
	Total int  `json:"total"`
	Page  int  `json:"page"`
	Limit int  `json:"limit"`
}

// NewPage constructs an empty page.
func NewPage[T any](page int, limit int) *Page[T] {
	return &Page[T]{make([]*T, 0), 0, page, limit}
}

// TotalPages returns the number of pages needed to hold Total rows.
func (p *Page[T]) TotalPages() int {
	if p.Limit < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page follows this one.
func (p *Page[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}
