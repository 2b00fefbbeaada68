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

package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"creditcard":  {},
	"ssn":         {},
	"phonenumber": {},
}

// IsSensitiveKey reports whether values stored under key must be masked.
// Matching ignores case and underscores, so phone_number and phoneNumber are
// both sensitive.
func IsSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(key, "_", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}

// MaskValue replaces every character of v's string form with an asterisk.
func MaskValue(v any) string {
	return strings.Repeat("*", utf8.RuneCountInString(fmt.Sprint(v)))
}

// MaskSensitive returns value masked when key is sensitive, else value.
func MaskSensitive(key string, value any) any {
	if IsSensitiveKey(key) && value != nil {
		return MaskValue(value)
	}
	return value
}

// MaskSensitiveData walks maps and slices and masks values of sensitive keys.
// The input is not modified.
func MaskSensitiveData(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if IsSensitiveKey(key) && value != nil {
				out[key] = MaskValue(value)
			} else {
				out[key] = MaskSensitiveData(value)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = MaskSensitiveData(item)
		}
		return out
	default:
		return data
	}
}
