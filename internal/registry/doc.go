// Package registry provides the module registry, the host framework the
// loader registers modules with.
//
// Executed manifests declare modules through Module; the session calls
// Bootstrap once every pending load settled. Bootstrap validates that the
// root modules and everything they require were registered, so a missing
// declaration surfaces at start-up instead of at first use.
//
// Modules compiled into the binary implement Module and are registered
// before loading starts; the loader never fetches a resource for them.
package registry
