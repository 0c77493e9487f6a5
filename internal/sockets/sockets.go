//go:build unix

// Package sockets
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPv4 TCP/UDP socket helpers over raw descriptors. Every descriptor handed
// out here is close-on-exec and non-blocking, ready for the exchange engine.

package sockets

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// DefaultBacklog is the listen(2) backlog used when none is given.
const DefaultBacklog = 128

// resolve4 turns host/port into an IPv4 socket address. An empty host means
// INADDR_ANY when binding and the loopback address when connecting.
func resolve4(host string, port int, bind bool) (*unix.SockaddrInet4, error) {
	if port < 0 || port > 0xFFFF {
		return nil, fmt.Errorf("port %d out of range", port)
	}
	sa := &unix.SockaddrInet4{Port: port}
	if host == "" {
		if !bind {
			copy(sa.Addr[:], net.IPv4(127, 0, 0, 1).To4())
		}
		return sa, nil
	}
	ip, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	copy(sa.Addr[:], ip.IP.To4())
	return sa, nil
}

func socket(typ int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, typ, 0)
	if err != nil {
		return -1, fmt.Errorf("socket create: %w", err)
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func bind(fd int, host string, port int) error {
	sa, err := resolve4(host, port, true)
	if err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fmt.Errorf("bind %s:%d: %w", host, port, err)
	}
	return nil
}

func connect(fd int, host string, port int) error {
	sa, err := resolve4(host, port, false)
	if err != nil {
		return err
	}
	if err := unix.Connect(fd, sa); err != nil {
		return fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	return nil
}

// closeOnError closes fd and returns err; used on partially set up sockets.
func closeOnError(fd int, err error) (int, error) {
	unix.Close(fd)
	return -1, err
}

// TCPListen opens a listening socket bound to host:port. Port 0 lets the OS
// choose; use LocalPort to find out which.
func TCPListen(host string, port, backlog int) (int, error) {
	fd, err := socket(unix.SOCK_STREAM)
	if err != nil {
		return -1, err
	}
	if err := bind(fd, host, port); err != nil {
		return closeOnError(fd, err)
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return closeOnError(fd, fmt.Errorf("listen: %w", err))
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return closeOnError(fd, fmt.Errorf("set nonblock: %w", err))
	}
	return fd, nil
}

// TCPConnect makes a blocking connection to host:port and switches the
// connected socket to non-blocking mode.
func TCPConnect(host string, port int) (int, error) {
	fd, err := socket(unix.SOCK_STREAM)
	if err != nil {
		return -1, err
	}
	if err := connect(fd, host, port); err != nil {
		return closeOnError(fd, err)
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	if err := unix.SetNonblock(fd, true); err != nil {
		return closeOnError(fd, fmt.Errorf("set nonblock: %w", err))
	}
	return fd, nil
}

// Accept takes one pending connection from the listening socket lfd.
// It returns unix.EAGAIN if none is pending.
func Accept(lfd int) (int, error) {
	for {
		fd, _, err := unix.Accept(lfd)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, err
		}
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			return closeOnError(fd, err)
		}
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		return fd, nil
	}
}

// UDPListen opens a datagram socket bound to host:port.
func UDPListen(host string, port int) (int, error) {
	fd, err := socket(unix.SOCK_DGRAM)
	if err != nil {
		return -1, err
	}
	if err := bind(fd, host, port); err != nil {
		return closeOnError(fd, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return closeOnError(fd, fmt.Errorf("set nonblock: %w", err))
	}
	return fd, nil
}

// UDPConnect opens a datagram socket whose default destination is host:port.
func UDPConnect(host string, port int) (int, error) {
	fd, err := socket(unix.SOCK_DGRAM)
	if err != nil {
		return -1, err
	}
	if err := connect(fd, host, port); err != nil {
		return closeOnError(fd, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return closeOnError(fd, fmt.Errorf("set nonblock: %w", err))
	}
	return fd, nil
}

// LocalPort returns the local port fd is bound to.
func LocalPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, fmt.Errorf("getsockname: %w", err)
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return a.Port, nil
	case *unix.SockaddrInet6:
		return a.Port, nil
	default:
		return 0, errors.New("getsockname: not an inet socket")
	}
}

// Read is read(2) with EINTR retried.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Write is write(2) with EINTR retried.
func Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Close closes fd.
func Close(fd int) error {
	return unix.Close(fd)
}

// WouldBlock reports whether err means the operation would have blocked.
func WouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
