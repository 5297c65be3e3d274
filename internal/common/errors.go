// Package common defines shared constants and sentinel errors used across
// the tracker, the local cache and the remote store client. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrorRemoteUnavailable = errors.New("remote store unavailable")

	// Validation errors (missing or malformed entry fields).
	ErrorValidation = errors.New("validation error")
)
