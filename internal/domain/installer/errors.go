package installer

import "errors"

var (
	// ErrConfiguration marks missing or invalid local inputs: metadata,
	// build folder, installer binary, archive contents.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication marks missing or rejected credentials.
	ErrAuthentication = errors.New("authentication error")
	// ErrRegistryUnavailable marks connectivity or server availability failures.
	ErrRegistryUnavailable = errors.New("registry unavailable")
	// ErrConflict marks a registry entry that differs from the local record.
	ErrConflict = errors.New("installer conflict")
)
