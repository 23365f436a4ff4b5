// Package fois wraps the upstream railway APIs: the RailRadar bulk
// directory of active locomotives and the per-locomotive FOIS/RTIS
// detail endpoint. It also hosts the parser that turns the detail
// payload's embedded HTML message into a structured observation.
//
// Both upstream contracts are third-party controlled and may change
// shape without notice; callers must treat every fetch as fallible.
package fois
