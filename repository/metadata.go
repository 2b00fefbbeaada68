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
	"reflect"
	"strings"

	"github.com/uptrace/bun/schema"
)

// Metadata describes the entity a repository is bound to: its table, primary
// key, columns and declared relations. It is derived once from bun's table
// model at construction time and is read-only afterwards.
type Metadata struct {
	Table      string
	Alias      string
	PrimaryKey string
	Fields     []string
	Relations  []string

	table *schema.Table
}

func newMetadata(table *schema.Table) *Metadata {
	m := &Metadata{
		Table: table.Name,
		Alias: table.Alias,
		table: table,
	}
	if len(table.PKs) > 0 {
		m.PrimaryKey = table.PKs[0].Name
	} else {
		m.PrimaryKey = "id"
	}
	for _, f := range table.Fields {
		m.Fields = append(m.Fields, f.Name)
	}
	for name := range table.Relations {
		m.Relations = append(m.Relations, name)
	}
	return m
}

// Column resolves a caller-supplied field name to a column name. Column names
// match first, then Go field names, both case-insensitively. Unknown names are
// returned unchanged so the storage engine reports them.
func (m *Metadata) Column(name string) string {
	if f, ok := m.table.FieldMap[name]; ok {
		return f.Name
	}
	for _, f := range m.table.Fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.GoName, name) {
			return f.Name
		}
	}
	return name
}

// Relation resolves a relation name case-insensitively against the declared
// relations. Unknown names are returned unchanged.
func (m *Metadata) Relation(name string) string {
	if _, ok := m.table.Relations[name]; ok {
		return name
	}
	for declared := range m.table.Relations {
		if strings.EqualFold(declared, name) {
			return declared
		}
	}
	return name
}

// HasField reports whether the entity maps a column with the given name.
func (m *Metadata) HasField(column string) bool {
	_, ok := m.table.FieldMap[column]
	return ok
}

// singlePK returns the primary key field when the table has exactly one.
func (m *Metadata) singlePK() *schema.Field {
	if len(m.table.PKs) != 1 {
		return nil
	}
	return m.table.PKs[0]
}

// pkValue extracts the primary key value of entity, or nil when the table has
// no single primary key.
func (m *Metadata) pkValue(entity any) any {
	pk := m.singlePK()
	if pk == nil {
		return nil
	}
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return pk.Value(v).Interface()
}

// hasPK reports whether entity has every primary key field set.
func (m *Metadata) hasPK(entity any) bool {
	if len(m.table.PKs) == 0 {
		return false
	}
	v := reflect.Indirect(reflect.ValueOf(entity))
	if !v.IsValid() {
		return false
	}
	for _, pk := range m.table.PKs {
		if pk.HasZeroValue(v) {
			return false
		}
	}
	return true
}
