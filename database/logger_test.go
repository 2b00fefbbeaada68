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

func TestToFields(t *testing.T) {
	fields := toFields([]any{"user", "bob", "password", "hunter2", "phone_number", 5551234, "dangling"})
	assert.Equal(t, "bob", fields["user"])
	assert.Equal(t, "*******", fields["password"])
	assert.Equal(t, "*******", fields["phone_number"])
	assert.Equal(t, "dangling", fields["extra"])
	assert.Len(t, fields, 4)
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "DEBUG", LogLevel(42).String())
}

func TestGetLogger_IsStable(t *testing.T) {
	assert.Same(t, GetLogger(), GetLogger())
}
