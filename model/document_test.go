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

package model

import (
	"encoding/json"
	"testing"

	"github.com/docauth/docauth/types"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatus(t *testing.T) {
	assert.Len(t, DocumentStatuses(), 12)
	assert.Equal(t, 0, StatusUploaded.Number())
	assert.Equal(t, 11, StatusArchived.Number())
	assert.True(t, StatusAuthorized.IsValid())
	assert.Equal(t, "authorized", StatusAuthorized.Name())
	assert.Equal(t, "authorized by an organization", StatusAuthorized.Desc())

	bogus := DocumentStatus("shredded")
	assert.False(t, bogus.IsValid())
	assert.Equal(t, types.IllegalValue, bogus.Number())
	assert.Equal(t, types.IllegalName, bogus.Name())
	assert.Equal(t, types.IllegalDesc, bogus.Desc())
	assert.Equal(t, "shredded", bogus.String())
}

func TestParseDocumentStatus(t *testing.T) {
	s, ok := ParseDocumentStatus("REVOKED")
	assert.True(t, ok)
	assert.Equal(t, StatusRevoked, s)

	_, ok = ParseDocumentStatus("shredded")
	assert.False(t, ok)
}

func TestDocumentStatuses_ReturnsCopy(t *testing.T) {
	statuses := DocumentStatuses()
	statuses[0] = "mutated"
	assert.Equal(t, StatusUploaded, DocumentStatuses()[0])
}

func TestUserJSONHidesPassword(t *testing.T) {
	b, err := json.Marshal(&User{Email: "a@b.c", Password: "secret"})
	assert.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.Contains(t, string(b), `"email":"a@b.c"`)
}
