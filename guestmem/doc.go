// Package guestmem moves byte ranges across the guest boundary.
//
// Reads copy out of linear memory inside the importing call; the host
// never holds a view into guest memory afterwards. Writes go into fresh
// buffers reserved through the guest's exported allocator and are handed
// back as packed (ptr,len) references, so lengths are always explicit on
// the wire.
package guestmem
