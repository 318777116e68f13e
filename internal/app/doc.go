// Package app is belfry's composition root.
//
// Open reads the configuration and wires the client stack:
//
//	config.Load ─> logging.New ─> secret.Get ─> device.NewClient
//	                                               │
//	              metrics.Recorder <── attempts ───┤
//	                                               ├─> cache.New (sink, observer)
//	                                               └─> NewPoller ─> state.Store
//
// One-shot CLI commands use the returned Env directly. Run additionally
// primes the cache and snapshot, starts the pollers and the optional metrics
// endpoint, and hands control to the dashboard until it exits.
//
// # Polling
//
// The Poller runs four independent cadences (clock 1s, status 5s, relay 10s,
// system info 30s by default), each in its own goroutine under an errgroup.
// A tick ends in one of three outcomes:
//
//   - Updated: the section of the snapshot is replaced wholesale
//   - Skipped: the device answered 429 (or the context ended); nothing changes
//   - Failed: the previous data is kept and the error recorded in the store
//
// Failures are logged once per failing streak at warn level and never stop
// the loop. Two failed status polls in a row mark the device offline.
package app
