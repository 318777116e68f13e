// Package state holds the latest polled device data for the dashboard.
//
// # Overview
//
// Four pollers (clock, status, relay, system info) write into one Store; the
// dashboard reads a Snapshot on every tick. The store never talks to the
// device itself.
//
//	Pollers:                       Dashboard:
//	┌──────────────────────┐      ┌──────────────────┐
//	│ FetchClock()  1s     │      │                  │
//	│ FetchStatus() 5s     │      │                  │
//	│ FetchRelay()  10s    │─────→│ store.Snapshot() │
//	│ FetchStatus() 30s    │(lock)│      ↓           │
//	│   store.UpdateX()    │      │  render header   │
//	└──────────────────────┘      └──────────────────┘
//
// # Update Semantics
//
// Each section is replaced wholesale under the write lock, so readers never
// see half of a status payload. Sections are independent; whichever poll
// resolves last wins for its own section.
//
//	store.UpdateStatus(status, nil)  → Status replaced, failures reset
//	store.UpdateStatus(nil, err)     → Status kept, LastError = err, failures++
//
// A rate-limited poll (HTTP 429) never reaches the store: the poller skips the
// cycle, so neither the data nor LastError changes.
//
// # Offline Detection
//
// ConsecutiveFailures counts failed status polls only. IsOffline reports true
// from the second consecutive failure; the clock and relay pollers fail more
// often on a congested device and do not count.
//
// # Copies
//
// Snapshot returns copies of the pointer and map fields and wraps LastError,
// so the UI can keep a snapshot across renders without racing the pollers.
// The zero Store is ready to use.
package state
