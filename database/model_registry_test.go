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

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type regA struct{}
type regB struct{}
type regC struct{}

func TestModelRegistry_OrderAndDedupe(t *testing.T) {
	r := newModelRegistry()
	r.Register(NewModelAdapter((*regC)(nil), 30))
	r.Register(NewModelAdapter((*regA)(nil), 10))
	r.Register(NewModelAdapter((*regB)(nil), 10))
	r.Register(NewModelAdapter((*regC)(nil), 5))

	models := r.Models()
	assert.Len(t, models, 3)

	var order []any
	for _, m := range models {
		order = append(order, m.Instance())
	}
	assert.Equal(t, []any{(*regC)(nil), (*regA)(nil), (*regB)(nil)}, order)
	assert.Equal(t, 5, models[0].Priority())
}
