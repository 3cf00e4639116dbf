// Package retry provides exponential backoff for the two retry shapes
// the hub client needs.
//
// Backoff is a stateful calculator with jitter for long-lived recovery
// loops, such as rebinding the report listener socket after a read
// error. Policy is a stateless, bounded retry for individual command
// exchanges; it doubles a base delay between attempts and stops on the
// first non-retryable error.
package retry
