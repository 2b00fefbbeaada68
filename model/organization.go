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

	"github.com/uptrace/bun"
)

type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:adm"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	Email           string          `bun:"email,notnull,unique" json:"email"`
	Password        string          `bun:"password,notnull" json:"-"`
	FirstName       string          `bun:"first_name,notnull" json:"firstName"`
	LastName        string          `bun:"last_name,notnull" json:"lastName"`
	PhoneNumber     string          `bun:"phone_number,nullzero" json:"phoneNumber,omitempty"`
	EthereumAddress string          `bun:"ethereum_address,nullzero" json:"ethereumAddress,omitempty"`
	Users           []*User         `bun:"rel:has-many,join:id=admin_id" json:"users,omitempty"`
	Organizations   []*Organization `bun:"rel:has-many,join:id=admin_id" json:"organizations,omitempty"`
	Notifications   []*Notification `bun:"rel:has-many,join:id=admin_id" json:"notifications,omitempty"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Organization issues and authorizes documents and is managed by an admin.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`

	ID                  int64           `bun:"id,pk,autoincrement" json:"id"`
	Name                string          `bun:"name,notnull" json:"name"`
	Email               string          `bun:"email,notnull,unique" json:"email"`
	PhoneNumber         string          `bun:"phone_number,notnull" json:"phoneNumber"`
	Address             string          `bun:"address,notnull" json:"address"`
	EthereumAddress     string          `bun:"ethereum_address,nullzero" json:"ethereumAddress,omitempty"`
	AdminID             *int64          `bun:"admin_id" json:"adminId,omitempty"`
	Admin               *Admin          `bun:"rel:belongs-to,join:admin_id=id" json:"admin,omitempty"`
	Users               []*User         `bun:"rel:has-many,join:id=organization_id" json:"users,omitempty"`
	OwnedDocuments      []*Document     `bun:"rel:has-many,join:id=owning_organization_id" json:"ownedDocuments,omitempty"`
	AuthorizedDocuments []*Document     `bun:"rel:has-many,join:id=authorizing_organization_id" json:"authorizedDocuments,omitempty"`
	Notifications       []*Notification `bun:"rel:has-many,join:id=organization_id" json:"notifications,omitempty"`
	CreatedAt           time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt           time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
