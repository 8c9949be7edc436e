package bootstrap

import "errors"

var (
	// ErrNotAuthenticated is returned by operations that require a live
	// session when none is present.
	ErrNotAuthenticated = errors.New("not_authenticated")
	// ErrIdentityNotFound means the provider has no identity record for the
	// session's subject, so provisioning cannot proceed.
	ErrIdentityNotFound = errors.New("identity_not_found")
	// ErrProfileUnavailable wraps transient fetch failures. The session stays
	// valid; callers retry via RefreshProfile.
	ErrProfileUnavailable = errors.New("profile_unavailable")
)
