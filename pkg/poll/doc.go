// Package poll keeps a live snapshot of hub device state.
//
// Hubs answer queries but do not guarantee delivery of pushed
// reports, so hosts poll: a Coordinator enumerates devices every
// interval, retrying transient faults, and exposes the result as an
// immutable-per-read snapshot. Pushed reports from a listener fold in
// between polls via ApplyUpdate, giving sub-second reaction without
// trusting the push channel for correctness.
//
// Availability tracks the hub, not single devices: a refresh cycle
// that fails flips Available to false until a later cycle succeeds.
package poll
