package upload

import "errors"

// Protocol errors map directly onto the HTTP status codes and structured
// error bodies described in the external interface.
var (
	ErrFileTooLarge        = errors.New("upload: file exceeds maximum size")
	ErrInvalidRequestBody  = errors.New("upload: invalid request body")
	ErrInvalidSession      = errors.New("upload: invalid or unknown session")
	ErrMissingHeader       = errors.New("upload: missing required header")
	ErrUnauthorized        = errors.New("upload: missing or invalid bearer token")
	ErrInternal            = errors.New("upload: internal error")
	ErrAssemblyFailed      = errors.New("upload: assembly failed")
	ErrSessionStoreDown    = errors.New("upload: session store unavailable")
)
