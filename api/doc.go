// Package api exposes the cached observations and the on-demand live
// lookup over HTTP. It is a thin read surface: all collection logic
// lives in the collector, all persistence in the store.
package api
