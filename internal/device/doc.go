// Package device provides an HTTP client for the bell controller API.
//
// # Overview
//
// The controller is an ESP32 running an async web server. It exposes read-only
// JSON endpoints (status, relay pins, clock, collections) and a set of
// imperative endpoints that ring bells, edit melodies and schedules, and
// configure the device. This package owns the wire types and every call to
// the device; nothing else in belfry opens HTTP connections to it.
//
// # Files
//
//   - client.go: Client construction, Send (the transport strategy), reads
//   - strategy.go: Command names and the ordered attempt table per command
//   - commands.go: typed wrappers for control commands
//   - types.go: wire types mirroring the firmware JSON
//   - errors.go: transport, business and validation errors
//
// # Transport Strategy
//
// Send looks the command up in a table of attempts. Each attempt names a
// method, a path and an encoding form:
//
//	stop-melody   POST /api/stop-melody            then GET /api/stop-melody
//	toggle-bells  POST /api/toggle-bells {enabled} then GET /api/toggle-bells?enabled=0|1
//	set-time      POST /api/set-time {dateTime}    then POST /api/set-time {year,...,second}
//	set-relay     GET  /api/set-relay?relay=&value=
//	everything else: one JSON POST
//
// The second attempt runs only when the first produced no 2xx response, and
// at most once. A 2xx response ends the loop even when it carries
// success:false; that is a business failure, not a reason to switch
// encodings.
//
// # Confirmation
//
// Two helpers sit on top of Send:
//
//   - Mutate requires success:true; a missing field is a failure. The entity
//     cache uses it for every collection change.
//   - Control rejects only an explicit success:false; used for commands whose
//     firmware answers with other fields (toggle-test-mode) or nothing useful.
//
// # Reads and Rate Limiting
//
// The firmware throttles /api/status and /api/relay-status to one request per
// 150 ms and answers 429 otherwise. Reads return ErrRateLimited for 429 so
// pollers can skip the cycle without reporting an error.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: belfry/0.1
//   - Carry a fresh X-Request-ID (uuid) so device and client logs line up
//   - Send HTTP basic credentials when configured
//   - Have a 5-second timeout unless WithTimeout overrides it
package device
