// Package engine integrates wazero and the Binaryen asyncify protocol.
//
// A CallSession drives one logical request's guest call: Step runs the
// guest until it either completes or suspends on a PendingOp, and a later
// Step with the operation's YieldResult rewinds the guest past the
// suspension point. Each session owns its own asyncify stack region in
// guest memory, so any number of requests may be suspended concurrently
// while at most one is running.
//
// Suspending host handlers use Suspend and Resume through the context;
// sessions must only be stepped from the goroutine that owns the guest
// instance.
package engine
