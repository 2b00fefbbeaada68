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
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Operator determines how a criterion's value is compared against a field.
type Operator string

const (
	OpEq   Operator = "eq"
	OpGt   Operator = "gt"
	OpLt   Operator = "lt"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// IsKnown reports whether the operator is one of the recognized keywords.
func (o Operator) IsKnown() bool {
	switch o {
	case OpEq, OpGt, OpLt, OpLike, OpIn:
		return true
	}
	return false
}

// Criterion is a single field constraint: an operator plus its operand.
// For OpIn the operand is a slice; see Values.
type Criterion struct {
	Op    Operator
	Value any
}

// Eq matches rows whose field equals v.
func Eq(v any) Criterion { return Criterion{Op: OpEq, Value: v} }

// Gt matches rows whose field is greater than v.
func Gt(v any) Criterion { return Criterion{Op: OpGt, Value: v} }

// Lt matches rows whose field is less than v.
func Lt(v any) Criterion { return Criterion{Op: OpLt, Value: v} }

// Like matches rows whose field contains v as a substring. % and _ in v are
// not escaped and act as wildcards.
func Like(v string) Criterion { return Criterion{Op: OpLike, Value: v} }

// In matches rows whose field equals any of values. A single slice argument
// is expanded, so In(ids) and In(ids...) are equivalent.
func In(values ...any) Criterion {
	if len(values) == 1 {
		if expanded, ok := expand(values[0]); ok {
			return Criterion{Op: OpIn, Value: expanded}
		}
	}
	vals := make([]any, len(values))
	copy(vals, values)
	return Criterion{Op: OpIn, Value: vals}
}

// Values returns the operand of an In criterion as a slice. A scalar operand
// is treated as a one-element list.
func (c Criterion) Values() []any {
	if c.Value == nil {
		return nil
	}
	if v, ok := c.Value.([]any); ok {
		return v
	}
	if expanded, ok := expand(c.Value); ok {
		return expanded
	}
	return []any{c.Value}
}

// expand flattens any slice or array into []any. Byte slices are scalar
// column values and are left alone.
func expand(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Criteria maps field names to constraints. All entries are AND-joined.
type Criteria map[string]Criterion

// Fields returns the criteria keys in sorted order.
func (c Criteria) Fields() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON accepts both literal values (equality) and operator objects:
//
//	{"status": "active", "age": {"operator": "gt", "value": 30}}
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Criteria, len(raw))
	for field, msg := range raw {
		crit, err := decodeCriterion(msg)
		if err != nil {
			return fmt.Errorf("criteria field %q: %w", field, err)
		}
		out[field] = crit
	}
	*c = out
	return nil
}

func decodeCriterion(msg json.RawMessage) (Criterion, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var op struct {
			Operator *string         `json:"operator"`
			Value    json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &op); err != nil {
			return Criterion{}, err
		}
		if op.Operator != nil {
			var v any
			if len(op.Value) > 0 {
				if err := json.Unmarshal(op.Value, &v); err != nil {
					return Criterion{}, err
				}
			}
			return Criterion{Op: Operator(strings.ToLower(*op.Operator)), Value: v}, nil
		}
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Criterion{}, err
	}
	return Eq(v), nil
}
