// Package cache provides a small generic TTL cache.
//
// The hub client uses it to absorb command bursts: identical control
// commands within a short window reuse the previous hub response, and
// remote-control list lookups are reused for minutes because the hub
// recomputes them slowly.
package cache
