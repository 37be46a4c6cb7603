// Package allocator implements admission control over per-server CPU/RAM
// caps.  Capacity is an accounting unit enforced at admission time, not an
// OS-level scheduling construct: Allocate grants capacity or fails, and
// Deallocate returns it, with saturating arithmetic so that stale or
// duplicate frees can never push usage negative or availability above the
// caps.
package allocator
