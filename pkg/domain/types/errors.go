package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures from the Git provider so that use cases never
// branch on provider-native error shapes.
var (
	// TagNotFound marks a missing remote resource. Most callers treat this
	// as a normal case, not a failure.
	TagNotFound = goerr.NewTag("not_found")

	// TagConflict marks optimistic-concurrency failures: SHA mismatch,
	// branch ref moved, or an open Pull Request already existing for the
	// same head/base pair.
	TagConflict = goerr.NewTag("conflict")

	// TagNoDiff marks a Pull Request attempt between branches with no
	// commits ahead. It is user-actionable and distinct from TagConflict.
	TagNoDiff = goerr.NewTag("no_diff")

	// TagAuth marks authorization or connectivity failures. Never retried.
	TagAuth = goerr.NewTag("auth")
)
