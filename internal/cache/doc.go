// Package cache keeps the local copies of the device's melodies, weekly
// schedules and special events.
//
// Loads fetch a collection, normalize whatever layout the firmware answered
// with (see Normalize) and swap the result in atomically. Mutations go through
// device.Client.Mutate and touch the cache only after the device confirms with
// success:true; the collection is then reloaded. Whole-collection replaces set
// the submitted items directly and reconcile with a background load.
//
// Each collection is fenced by a sequence number taken when a load or replace
// is issued, so a response that arrives late never overwrites a newer one.
package cache
