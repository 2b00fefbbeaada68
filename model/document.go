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

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusPending    DocumentStatus = "pending"
	StatusAuthorized DocumentStatus = "authorized"
	StatusRevoked    DocumentStatus = "revoked"
	StatusDeleted    DocumentStatus = "deleted"
	StatusRejected   DocumentStatus = "rejected"
	StatusError      DocumentStatus = "error"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
	StatusExpired    DocumentStatus = "expired"
	StatusArchived   DocumentStatus = "archived"
)

var documentStatuses = []DocumentStatus{
	StatusUploaded, StatusPending, StatusAuthorized, StatusRevoked,
	StatusDeleted, StatusRejected, StatusError, StatusProcessing,
	StatusCompleted, StatusFailed, StatusExpired, StatusArchived,
}

var documentStatusDesc = map[DocumentStatus]string{
	StatusUploaded:   "uploaded, awaiting review",
	StatusPending:    "waiting for organization authorization",
	StatusAuthorized: "authorized by an organization",
	StatusRevoked:    "authorization revoked",
	StatusDeleted:    "deleted by its owner",
	StatusRejected:   "authorization rejected",
	StatusError:      "processing error",
	StatusProcessing: "being processed",
	StatusCompleted:  "processing completed",
	StatusFailed:     "processing failed",
	StatusExpired:    "authorization expired",
	StatusArchived:   "archived",
}

var _ types.BaseEnum = StatusUploaded

// DocumentStatuses returns every status in lifecycle order.
func DocumentStatuses() []DocumentStatus {
	out := make([]DocumentStatus, len(documentStatuses))
	copy(out, documentStatuses)
	return out
}

// ParseDocumentStatus looks a status up by name, ignoring case.
func ParseDocumentStatus(name string) (DocumentStatus, bool) {
	return types.EnumByName(documentStatuses, name)
}

func (s DocumentStatus) IsValid() bool { return s.Number() != types.IllegalValue }

func (s DocumentStatus) Number() int {
	for i, status := range documentStatuses {
		if status == s {
			return i
		}
	}
	return types.IllegalValue
}

func (s DocumentStatus) String() string { return string(s) }

func (s DocumentStatus) Name() string {
	if !s.IsValid() {
		return types.IllegalName
	}
	return string(s)
}

func (s DocumentStatus) Desc() string {
	if desc, ok := documentStatusDesc[s]; ok {
		return desc
	}
	return types.IllegalDesc
}

// Document is an uploaded file identified by its content hash.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID                        int64          `bun:"id,pk,autoincrement" json:"id"`
	Hash                      string         `bun:"hash,notnull,unique" json:"hash"`
	Original                  bool           `bun:"original,notnull,default:false" json:"original"`
	Authorized                bool           `bun:"authorized,notnull,default:false" json:"authorized"`
	TokenID                   string         `bun:"token_id,nullzero" json:"tokenId,omitempty"`
	FileName                  string         `bun:"file_name,notnull" json:"fileName"`
	FileType                  string         `bun:"file_type,notnull" json:"fileType"`
	Description               string         `bun:"description,type:text,nullzero" json:"description,omitempty"`
	Deleted                   bool           `bun:"deleted,notnull,default:false" json:"deleted"`
	Status                    DocumentStatus `bun:"status,nullzero,notnull,default:'uploaded'" json:"status"`
	OwnerID                   *int64         `bun:"owner_id" json:"ownerId,omitempty"`
	Owner                     *User          `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	OwningOrganizationID      *int64         `bun:"owning_organization_id" json:"owningOrganizationId,omitempty"`
	OwningOrganization        *Organization  `bun:"rel:belongs-to,join:owning_organization_id=id" json:"owningOrganization,omitempty"`
	AuthorizingOrganizationID *int64         `bun:"authorizing_organization_id" json:"authorizingOrganizationId,omitempty"`
	AuthorizingOrganization   *Organization  `bun:"rel:belongs-to,join:authorizing_organization_id=id" json:"authorizingOrganization,omitempty"`
	Certificates              []*Certificate `bun:"rel:has-many,join:id=document_id" json:"certificates,omitempty"`
	CreatedAt                 time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt                 time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Certificate is the on-chain token minted for an authorized document.
type Certificate struct {
	bun.BaseModel `bun:"table:certificates,alias:cert"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	TokenID    string    `bun:"token_id,notnull,unique" json:"tokenId"`
	DocumentID *int64    `bun:"document_id" json:"documentId,omitempty"`
	Document   *Document `bun:"rel:belongs-to,join:document_id=id" json:"document,omitempty"`
	OwnerID    *int64    `bun:"owner_id" json:"ownerId,omitempty"`
	Owner      *User     `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	Authorized bool      `bun:"authorized,notnull,default:false" json:"authorized"`
}
