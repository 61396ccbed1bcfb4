// Package progress keeps aggregated process instance counters fed by the
// runtime lifecycle events. A Tracker is registered as a lifecycle listener and
// can notify an observer after every change.
package progress
