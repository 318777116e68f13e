// Package editor holds the melody composition buffer and the row-based
// editors for weekly schedules and special events.
//
// Rows are the shared editable representation used by the dashboard and the
// command line: WeeklyRow and SpecialRow render cached entities, the caller
// edits field values, and ReconstructWeekly / ReconstructSpecial merge the
// rows back over the cached collection by position before a whole-collection
// replace.
package editor
