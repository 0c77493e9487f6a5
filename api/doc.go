// Package api
// Author: momentics <momentics@gmail.com>
//
// Shared contracts of hioload-mx: error taxonomy and the multiplexer
// interface the exchange engine blocks on.
package api
