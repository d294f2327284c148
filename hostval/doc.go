// Package hostval defines the host-native value model the bridge exposes
// through handles: null (Go nil), Undefined, booleans, IEEE-754 numbers,
// strings, insertion-ordered Objects, Arrays, raw Bytes, dates, callable
// Functions, and error values.
//
// A closed class registry maps small integers to constructible classes so
// the guest can instantiate and instance-of-check host values without any
// reflection on the host side.
//
// JSON reflection (Stringify/Parse) and the canonical-form deep equality
// used by the bridge live here as well. Deep equality is approximate by
// contract: operands without a canonical JSON form compare unequal.
package hostval
