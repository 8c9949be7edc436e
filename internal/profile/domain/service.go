package domain

import "context"

// UpdateProfileRequest is a sparse patch. Nil fields are left untouched.
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Department *string `json:"department"`
	Title      *string `json:"title"`
}

type Service interface {
	GetByAuthID(ctx context.Context, authID string) (*Profile, error)
	Update(ctx context.Context, authID string, req UpdateProfileRequest) (*Profile, error)
}
