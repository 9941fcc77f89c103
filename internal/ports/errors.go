package ports

import "errors"

// Error kinds surfaced to the user. Adapters and domain code wrap these with
// fmt.Errorf("...: %w") so callers can classify with errors.Is.
var (
	// ErrConflictingIntent: baseline and diff were both requested.
	ErrConflictingIntent = errors.New("conflicting intent: --baseline and --diff are mutually exclusive")

	// ErrSearchFailed: the search provider failed (transport, auth, rate limit).
	ErrSearchFailed = errors.New("search failed")

	// ErrStoreUnavailable: the baseline store could not be opened, read or written.
	ErrStoreUnavailable = errors.New("baseline store unavailable")

	// ErrMissingCredential: the search API credential is not configured.
	ErrMissingCredential = errors.New("missing search API credential")
)
