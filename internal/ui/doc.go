// Package ui is belfry's terminal dashboard, built on Bubble Tea.
//
// # Layout
//
//   - Header: two lines rendered from the latest state.Snapshot (online or
//     offline marker, bells, scheduler, device clock, temperature, network
//     mode and IP, NTP, timezone with DST, relay pins and status LED)
//   - Tab bar: Melodies, Weekly, Special, Log
//   - Body: a bubbles table over the cached collection, or the tail of the
//     client log filtered by level
//   - Toast line: the newest notify.Feed message for a few seconds
//   - Footer: short key help
//
// # Event Flow
//
//  1. Run builds the Model and starts the program
//  2. A tick re-reads the snapshot from state.Store (and the log on the Log tab)
//  3. Keys start device actions as tea.Cmds off the UI loop
//  4. Each action returns an actionMsg; the outcome goes to the notify sink
//     and the table is rebuilt from the cache
//
// The dashboard never writes collections itself. Schedule toggles and reloads
// go through the entity cache, which only changes after the device confirms.
//
// # Key Bindings
//
//   - 1-4, tab/shift+tab: switch tab
//   - s: stop melody
//   - b: bells on/off (target computed from the last status snapshot)
//   - X then y: emergency stop
//   - p/enter: play the selected melody
//   - space/a: toggle the selected schedule or event
//   - r: reload collections and status
//   - f: cycle the minimum log level (Log tab)
//   - T: cycle theme
//   - ?: help
//   - q or Ctrl+C: quit
package ui
