// Package platform implements the host services the bridge primitives
// delegate to: outbound HTTP, keyed rate limiters, named TTL caches, a
// crypto engine, and secure randomness. Services are constructed once per
// runtime and shared by every request.
package platform
