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

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID    int64   `bun:"id,pk,autoincrement" json:"id"`
	Name  string  `bun:"name,notnull,unique" json:"name"`
	Users []*User `bun:"rel:has-many,join:id=role_id" json:"users,omitempty"`
}

// User is an end user owning documents and certificates.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              int64          `bun:"id,pk,autoincrement" json:"id"`
	Email           string         `bun:"email,notnull,unique" json:"email"`
	Password        string         `bun:"password,notnull" json:"-"`
	FirstName       string         `bun:"first_name,nullzero" json:"firstName,omitempty"`
	LastName        string         `bun:"last_name,nullzero" json:"lastName,omitempty"`
	PhoneNumber     string         `bun:"phone_number,nullzero" json:"phoneNumber,omitempty"`
	EthereumAddress string         `bun:"ethereum_address,nullzero" json:"ethereumAddress,omitempty"`
	RoleID          *int64         `bun:"role_id" json:"roleId,omitempty"`
	Role            *Role          `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	AdminID         *int64         `bun:"admin_id" json:"adminId,omitempty"`
	Admin           *Admin         `bun:"rel:belongs-to,join:admin_id=id" json:"admin,omitempty"`
	OrganizationID  *int64         `bun:"organization_id" json:"organizationId,omitempty"`
	Organization    *Organization  `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
	Address         *Address       `bun:"rel:has-one,join:id=user_id" json:"address,omitempty"`
	Documents       []*Document    `bun:"rel:has-many,join:id=owner_id" json:"documents,omitempty"`
	Certificates    []*Certificate `bun:"rel:has-many,join:id=owner_id" json:"certificates,omitempty"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Address is the postal address of a user, one per user.
type Address struct {
	bun.BaseModel `bun:"table:addresses,alias:addr"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	Region  string `bun:"region,notnull" json:"region"`
	City    string `bun:"city,notnull" json:"city"`
	SubCity string `bun:"sub_city,notnull" json:"subCity"`
	Wereda  string `bun:"wereda,notnull" json:"wereda"`
	Kebele  string `bun:"kebele,notnull" json:"kebele"`
	HouseNo int    `bun:"house_no,notnull" json:"houseNo"`
	UserID  int64  `bun:"user_id,notnull,unique" json:"userId"`
	User    *User  `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
