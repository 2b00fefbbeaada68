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
	"cmp"
	"reflect"
	"slices"
	"sync"
)

var defaultRegistry = newModelRegistry()

// SQLModel is a Bun model taking part in migrations. Instance returns a struct
// pointer; lower priorities are created first so referenced tables exist
// before the tables pointing at them.
type SQLModel interface {
	Instance() any
	Priority() int
}

// ModelRegistry holds SQL models, at most one per Go type.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	mu     sync.RWMutex
	models []SQLModel
	index  map[reflect.Type]int
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{index: make(map[reflect.Type]int)}
}

// Register adds model. Registering the same type again replaces the entry
// in place.
func (r *modelRegistry) Register(model SQLModel) {
	typ := reflect.TypeOf(model.Instance())

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[typ]; ok {
		r.models[i] = model
		return
	}
	r.index[typ] = len(r.models)
	r.models = append(r.models, model)
}

// Models returns the models by ascending priority. Equal priorities keep
// registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	result := slices.Clone(r.models)
	r.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b SQLModel) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return result
}

// ModelAdapter pairs a model pointer with its creation priority.
type ModelAdapter struct {
	instance any
	priority int
}

// NewModelAdapter wraps a struct pointer and priority into an SQLModel.
func NewModelAdapter(instance any, priority int) SQLModel {
	return &ModelAdapter{instance: instance, priority: priority}
}

func (a *ModelAdapter) Instance() any { return a.instance }

func (a *ModelAdapter) Priority() int { return a.priority }

// GetRegisteredModels returns the models of the default registry.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// RegisteredModel adds a model to the default registry.
func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

// RegisteredModelInstances returns the struct pointers of the registered
// models in creation order.
func RegisteredModelInstances() []any {
	models := GetRegisteredModels()
	instances := make([]any, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}
