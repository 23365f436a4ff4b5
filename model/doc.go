// Package model defines the observation record shared by the upstream
// parser, the store and the HTTP layer.
package model
