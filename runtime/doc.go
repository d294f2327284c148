// Package runtime ties the pieces together: it loads an asyncified guest
// module, binds the hostbridge imports, and dispatches logical requests
// into the guest's entry points.
//
// A single dispatcher goroutine owns the guest instance; requests enter
// through Dispatch from any goroutine and settle through the resolution
// channel. Suspending host operations run on worker goroutines and feed
// their results back to the loop, so a slow fetch in one request never
// blocks another.
package runtime
