package auth

import "errors"

// Sentinel errors returned by the token service and principal resolver.
// Handlers translate them into HTTP responses in one place.
var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// unexpected algorithm, malformed payload and expiry alike.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnauthenticated means no principal could be attached to the
	// request. Inactive admins end up here as well.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the principal is known but its role is too low.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials is returned by login when the email is unknown
	// or the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
