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

// Package model holds the Bun models of the docauth schema.
package model

import (
	"github.com/docauth/docauth/database"
)

// Table creation priorities. Referenced tables come first.
const (
	priorityRole = (iota + 1) * 10
	priorityAdmin
	priorityOrganization
	priorityUser
	priorityAddress
	priorityDocument
	priorityCertificate
	priorityNotification
	priorityAudit
	priorityFeedback
)

// Models returns a pointer to every model, in creation order.
func Models() []any {
	return []any{
		(*Role)(nil),
		(*Admin)(nil),
		(*Organization)(nil),
		(*User)(nil),
		(*Address)(nil),
		(*Document)(nil),
		(*Certificate)(nil),
		(*Notification)(nil),
		(*Audit)(nil),
		(*Feedback)(nil),
	}
}

// Register adds every model to the database model registry and registers the
// foreign keys implied by their relations. Calling it again is harmless.
func Register() {
	database.RegisteredModel(database.NewModelAdapter((*Role)(nil), priorityRole))
	database.RegisteredModel(database.NewModelAdapter((*Admin)(nil), priorityAdmin))
	database.RegisteredModel(database.NewModelAdapter((*Organization)(nil), priorityOrganization))
	database.RegisteredModel(database.NewModelAdapter((*User)(nil), priorityUser))
	database.RegisteredModel(database.NewModelAdapter((*Address)(nil), priorityAddress))
	database.RegisteredModel(database.NewModelAdapter((*Document)(nil), priorityDocument))
	database.RegisteredModel(database.NewModelAdapter((*Certificate)(nil), priorityCertificate))
	database.RegisteredModel(database.NewModelAdapter((*Notification)(nil), priorityNotification))
	database.RegisteredModel(database.NewModelAdapter((*Audit)(nil), priorityAudit))
	database.RegisteredModel(database.NewModelAdapter((*Feedback)(nil), priorityFeedback))

	database.RegisterForeignKeys(ForeignKeys()...)
}

// ForeignKeys lists the constraints backing the belongs-to relations.
func ForeignKeys() []database.ForeignKeyConstraint {
	fk := func(table, column, ref, onDelete string) database.ForeignKeyConstraint {
		return database.ForeignKeyConstraint{
			Table:           table,
			Column:          column,
			ReferenceTable:  ref,
			ReferenceColumn: "id",
			OnDelete:        onDelete,
		}
	}
	return []database.ForeignKeyConstraint{
		fk("users", "role_id", "roles", "SET NULL"),
		fk("users", "admin_id", "admins", "SET NULL"),
		fk("users", "organization_id", "organizations", "SET NULL"),
		fk("addresses", "user_id", "users", "CASCADE"),
		fk("organizations", "admin_id", "admins", "SET NULL"),
		fk("documents", "owner_id", "users", "SET NULL"),
		fk("documents", "owning_organization_id", "organizations", "SET NULL"),
		fk("documents", "authorizing_organization_id", "organizations", "SET NULL"),
		fk("certificates", "document_id", "documents", "CASCADE"),
		fk("certificates", "owner_id", "users", "SET NULL"),
		fk("notifications", "user_id", "users", "CASCADE"),
		fk("notifications", "organization_id", "organizations", "CASCADE"),
		fk("notifications", "admin_id", "admins", "CASCADE"),
		fk("audits", "user_id", "users", "SET NULL"),
		fk("audits", "admin_id", "admins", "SET NULL"),
		fk("audits", "organization_id", "organizations", "SET NULL"),
		fk("feedback", "user_id", "users", "SET NULL"),
		fk("feedback", "admin_id", "admins", "SET NULL"),
		fk("feedback", "organization_id", "organizations", "SET NULL"),
	}
}
