// Package repository provides a generic repository built on Bun: typed CRUD,
// criteria-based filtering with operator dispatch, relation loading, sorting
// and offset pagination.
package repository
