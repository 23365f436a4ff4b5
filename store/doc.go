// Package store persists locomotive observations in BadgerDB.
//
// Each observation is keyed by (loco_no, observed_at), so writing the
// same pair twice updates in place. Entries carry a TTL equal to the
// retention window past their observation time; expiry is enforced by
// the storage engine, not by application sweeps. A secondary key per
// train number serves train-based lookups with the same lifetime.
package store
