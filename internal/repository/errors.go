// Package repository implements the persistence layer over database/sql.
// Sentinel errors let handlers translate storage failures into stable HTTP
// error kinds without inspecting driver messages.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique
// constraint on accounts.email. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrRoleNotFound is returned when an explicit role id or name does not
// resolve to a roles row.
var ErrRoleNotFound = errors.New("role not found")
