package domain

import "errors"

var (
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrInvalidAuthID   = errors.New("invalid_auth_id")
	ErrInvalidPatch    = errors.New("invalid_patch")
)
