// Package extension provides run-time registries that let the simulation
// core work with user-defined process behaviors and their Go types.
//
// The registries are normally populated through the public APIs of the root
// simcore package, so most applications do not import this package directly.
package extension
