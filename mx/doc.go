// Package mx
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package mx implements the Message Exchange: a single-threaded select(2)
// reactor over an arbitrary set of descriptors with buffered non-blocking
// I/O, length-prefixed message framing, a deadline-ordered timer queue, a
// per-type message subscription table and Await, a synchronous wait for one
// specific reply that keeps the reactor running underneath.
//
// Typical usage:
//
//	x, err := mx.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := x.Listen("", 7000); err != nil {
//	    log.Fatal(err)
//	}
//	x.OnMessage(1, func(x *mx.Exchange, fd int, typ, version uint32, payload []byte) {
//	    x.Send(fd, typ, version, payload)
//	})
//	if err := x.Run(); err != nil {
//	    log.Fatal(err)
//	}
//	x.Destroy()
//
// An Exchange is owned by one goroutine. None of its methods may be called
// concurrently; handlers run on the goroutine that called Run, Await or
// ProcessSelect.
package mx
