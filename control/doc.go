// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection layer of hioload-mx.
//
// Provides concurrent-safe state handling primitives including:
//   - Counter and gauge registry with snapshot reads
//   - Named debug probes evaluated on demand
//
// The exchange itself is single-threaded; the registry is safe to read from
// other goroutines while the exchange runs.
package control
