// Package collector owns the periodic collection cycle: enumerate the
// active locomotive directory, fan out detail fetches in rate-bounded
// chunks, reconcile the results against directory metadata and write
// them to the store as one unordered bulk upsert. It also serves the
// on-demand live lookup that bypasses the schedule.
//
// Every failure is contained within the cycle or request boundary; a
// bad cycle never stops the schedule.
package collector
