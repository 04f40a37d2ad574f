package service

import "errors"

// ErrInvalidState is returned when a transition is not allowed from the
// application's current status. The wrapped message names that status.
var ErrInvalidState = errors.New("invalid state")
