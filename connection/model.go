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

package connection

import (
	"crypto/tls"
	"net"
	"os"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

type cnx struct {
	c net.Conn
	t Type
	p string // owned unix socket path, empty when not owned
	l liblog.FuncLog
	x atomic.Bool // closed
}

func (o *cnx) logError(msg string, err ...error) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(loglvl.ErrorLevel, msg).ErrorAdd(true, err...).Log()
	}
}

func (o *cnx) Type() Type {
	return o.t
}

func (o *cnx) NetConn() net.Conn {
	if c, k := o.c.(*tls.Conn); k {
		return c.NetConn()
	}

	return o.c
}

func (o *cnx) LocalAddr() net.Addr {
	return o.c.LocalAddr()
}

func (o *cnx) RemoteAddr() net.Addr {
	return o.c.RemoteAddr()
}

func (o *cnx) Read(p []byte) (n int, err error) {
	if o.x.Load() {
		return 0, ErrorConnectionClosed.Error(nil)
	}

	return o.c.Read(p)
}

func (o *cnx) Write(p []byte) (n int, err error) {
	if o.x.Load() {
		return 0, ErrorConnectionClosed.Error(nil)
	}

	return o.c.Write(p)
}

func (o *cnx) SetDeadline(t time.Time) error {
	return o.c.SetDeadline(t)
}

func (o *cnx) SetReadDeadline(t time.Time) error {
	return o.c.SetReadDeadline(t)
}

func (o *cnx) SetWriteDeadline(t time.Time) error {
	return o.c.SetWriteDeadline(t)
}

func (o *cnx) CloseWrite() error {
	switch c := o.c.(type) {
	case *net.TCPConn:
		return c.CloseWrite()
	case *net.UnixConn:
		return c.CloseWrite()
	case *tls.Conn:
		return c.CloseWrite()
	}

	// datagram transports have no half-close
	return nil
}

// Close is idempotent: the first call closes the transport (a TLS session
// sends its close-notify alert inside tls.Conn.Close), later calls return nil.
func (o *cnx) Close() error {
	if !o.x.CompareAndSwap(false, true) {
		return nil
	}

	return o.c.Close()
}

func (o *cnx) CloseWithCleanup() error {
	e := o.Close()

	if len(o.p) > 0 {
		if r := os.Remove(o.p); r != nil && !os.IsNotExist(r) {
			o.logError("cannot remove unix socket file", r)
		}
	}

	return e
}
