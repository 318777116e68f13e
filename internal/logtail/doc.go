// Package logtail reads the end of belfry's own log file for the dashboard.
//
// # Reading
//
// Read uses a ring buffer to return the last maxLines of a file in one pass,
// with O(maxLines) memory regardless of file size. A missing file yields no
// lines and no error, since the log may not have been written yet.
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//
// # Parsing
//
// The client logger (package logging) writes lines like
//
//	2026-10-16 09:15:02 WARN primary attempt failed, trying fallback command=toggle-bells
//
// Parse splits out the timestamp and level; Filter drops entries below a
// minimum level. Lines that do not parse (panics, wrapped output) are always
// kept.
package logtail
