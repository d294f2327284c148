// Package bridge implements the host side of the guest/host object
// bridge: every primitive the guest imports under the "hostbridge"
// namespace, the request resolution contract, and the wazero host-module
// binding.
//
// Primitives are shape-checked. A stale or wrong-shape handle never traps
// the guest; it produces a defined failure value (Null, False, NaN, or a
// no-op) plus a warn log. Host errors that must abort the in-flight guest
// call, guest throws included, propagate by panicking out of the host
// function; wazero surfaces the panic as the call error and the
// dispatcher settles the request abnormally.
package bridge
