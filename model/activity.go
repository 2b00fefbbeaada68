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
	"time"

	"github.com/docauth/docauth/types"

	"github.com/uptrace/bun"
)

// Notification is addressed to at most one user, organization or admin.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:ntf"`

	ID             int64         `bun:"id,pk,autoincrement" json:"id"`
	Type           string        `bun:"type,notnull" json:"type"`
	Message        string        `bun:"message,type:text,notnull" json:"message"`
	UserID         *int64        `bun:"user_id" json:"userId,omitempty"`
	User           *User         `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	OrganizationID *int64        `bun:"organization_id" json:"organizationId,omitempty"`
	Organization   *Organization `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
	AdminID        *int64        `bun:"admin_id" json:"adminId,omitempty"`
	Admin          *Admin        `bun:"rel:belongs-to,join:admin_id=id" json:"admin,omitempty"`
	Read           bool          `bun:"read,notnull,default:false" json:"read"`
	CreatedAt      time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time     `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Audit records an action taken by a user, admin or organization.
type Audit struct {
	bun.BaseModel `bun:"table:audits,alias:aud"`

	ID             int64            `bun:"id,pk,autoincrement" json:"id"`
	Action         string           `bun:"action,notnull" json:"action"`
	Details        types.JsonObject `bun:"details,type:text" json:"details,omitempty"`
	UserID         *int64           `bun:"user_id" json:"userId,omitempty"`
	User           *User            `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	AdminID        *int64           `bun:"admin_id" json:"adminId,omitempty"`
	Admin          *Admin           `bun:"rel:belongs-to,join:admin_id=id" json:"admin,omitempty"`
	OrganizationID *int64           `bun:"organization_id" json:"organizationId,omitempty"`
	Organization   *Organization    `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
	Timestamp      time.Time        `bun:"timestamp,nullzero,notnull,default:current_timestamp" json:"timestamp"`
}

type Feedback struct {
	bun.BaseModel `bun:"table:feedback,alias:fb"`

	ID             int64         `bun:"id,pk,autoincrement" json:"id"`
	Message        string        `bun:"message,type:text,notnull" json:"message"`
	UserID         *int64        `bun:"user_id" json:"userId,omitempty"`
	User           *User         `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	AdminID        *int64        `bun:"admin_id" json:"adminId,omitempty"`
	Admin          *Admin        `bun:"rel:belongs-to,join:admin_id=id" json:"admin,omitempty"`
	OrganizationID *int64        `bun:"organization_id" json:"organizationId,omitempty"`
	Organization   *Organization `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
	Reviewed       bool          `bun:"reviewed,notnull,default:false" json:"reviewed"`
	Resolved       bool          `bun:"resolved,notnull,default:false" json:"resolved"`
	CreatedAt      time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
