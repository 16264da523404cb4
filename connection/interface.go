/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package connection defines the unified byte-stream abstraction shared by
// every engine of the tool: plain socket, TLS session, Unix socket or DTLS
// flow, with an optional owned filesystem path to remove on cleanup.
//
// Reads return 0 bytes with io.EOF when the peer closed. Writes may be
// short. Close is idempotent; closing a TLS session sends the close-notify
// alert best-effort. CloseWithCleanup additionally unlinks an owned Unix
// socket path, logging removal errors without propagating them.
package connection

import (
	"io"
	"net"
	"time"

	liblog "github.com/nabbar/golib/logger"
)

// Type discriminates the transport wrapped by a Connection.
type Type uint8

const (
	TypePlain Type = iota
	TypeTLS
	TypeUnix
	TypeDTLS
	TypeTelnet
)

// String returns the lowercase name of the connection type.
func (t Type) String() string {
	switch t {
	case TypePlain:
		return "plain"
	case TypeTLS:
		return "tls"
	case TypeUnix:
		return "unix"
	case TypeDTLS:
		return "dtls"
	case TypeTelnet:
		return "telnet"
	}

	return ""
}

// Connection is the transport handle handed to the transfer, exec and relay
// engines. Deadline methods drive every timeout in the tool; there is no
// separate timer thread.
type Connection interface {
	io.ReadWriteCloser

	// Type returns the variant of this connection.
	Type() Type

	// NetConn returns the underlying net.Conn. For TLS sessions it is the
	// raw transport socket: use it for polling and address queries only,
	// never for direct I/O.
	NetConn() net.Conn

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// CloseWrite performs a half-close, signalling EOF to the peer while
	// keeping the read side open. Transports without half-close support
	// ignore the call.
	CloseWrite() error

	// CloseWithCleanup closes the connection, then removes the owned Unix
	// socket path when there is one. Removal failures are logged only.
	CloseWithCleanup() error
}

// New wraps a net.Conn into a Connection of the given type.
func New(c net.Conn, t Type, log liblog.FuncLog) Connection {
	return &cnx{
		c: c,
		t: t,
		l: log,
	}
}

// NewUnix wraps a Unix-domain net.Conn. A non-empty path marks the socket
// file as owned by this process: CloseWithCleanup will unlink it.
func NewUnix(c net.Conn, path string, log liblog.FuncLog) Connection {
	return &cnx{
		c: c,
		t: TypeUnix,
		p: path,
		l: log,
	}
}
