// Package listener receives unsolicited state reports from the hub.
//
// Hubs push a report datagram to port 12348 whenever a sub-channel
// changes, carrying the same header and JSON body framing as command
// replies. The listener binds its own receive-only socket, decodes
// each report into a model.Update and buffers it in a bounded queue.
//
// The stream is lossy on purpose. Reports are a latency optimization
// over polling, not the source of truth: when the queue overflows the
// oldest update is dropped, and when a datagram does not decode it is
// logged and skipped. The poller reconciles any missed state.
//
//	ln := listener.New(listener.Config{})
//	if err := ln.Start(ctx); err != nil { ... }
//	for u := range ln.Updates() {
//		coordinator.ApplyUpdate(u)
//	}
package listener
