package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the actor lacks a required permission.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTenantRequired occurs when an operation is attempted without a tenant id.
	ErrTenantRequired = errors.New("tenant id required")
)
