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

package secure

import (
	"context"
	"crypto/tls"
	"net"
	"sync/atomic"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	liberr "github.com/nabbar/golib/errors"
	"github.com/pion/dtls/v2"
)

// Flow exposes the DTLS lifecycle of a secured datagram connection.
// The secured Connection returned by the adapter asserts to this interface.
type Flow interface {
	// State returns the current lifecycle state of the flow.
	State() State

	// Retransmissions returns the number of datagrams resent during the
	// handshake (flight repeats observed on the wire).
	Retransmissions() uint64
}

func (o *adp) dtlsConfig() (*dtls.Config, liberr.Error) {
	c := &dtls.Config{
		MTU:                  o.u,
		ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
		ConnectContextMaker: func() (context.Context, func()) {
			return context.WithTimeout(context.Background(), o.timeout())
		},
	}

	if len(o.c.CertFile) > 0 || len(o.c.KeyFile) > 0 {
		crt, e := tls.LoadX509KeyPair(o.c.CertFile, o.c.KeyFile)
		if e != nil {
			return nil, ErrorCertificateLoad.Error(e)
		}

		c.Certificates = []tls.Certificate{crt}
	}

	if o.s {
		if len(c.Certificates) == 0 {
			return nil, ErrorCertificateRequired.Error(nil)
		}

		if o.c.Verify {
			c.ClientAuth = dtls.RequireAndVerifyClientCert
			c.ClientCAs = o.p
		}
	} else {
		c.InsecureSkipVerify = !o.c.Verify
		c.RootCAs = o.p
		c.ServerName = o.c.ServerName
	}

	if o.r != nil {
		c.VerifyPeerCertificate = o.checkRevocation
	}

	return c, nil
}

func (o *adp) ListenDTLS(addr *net.UDPAddr) (net.Listener, liberr.Error) {
	cfg, err := o.dtlsConfig()
	if err != nil {
		return nil, err
	}

	l, e := dtls.Listen("udp", addr, cfg)
	if e != nil {
		return nil, ErrorHandshake.Error(e)
	}

	return l, nil
}

func (o *adp) ConnectDTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error) {
	return o.dtlsHandshake(cnx, false)
}

func (o *adp) AcceptDTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error) {
	return o.dtlsHandshake(cnx, true)
}

func (o *adp) dtlsHandshake(cnx libcnx.Connection, srv bool) (libcnx.Connection, liberr.Error) {
	cfg, err := o.dtlsConfig()
	if err != nil {
		return nil, err
	}

	f := &flow{}
	f.st.Store(uint32(StateHandshake))

	// the counting wrapper observes handshake flights on the raw socket
	w := &countConn{Conn: cnx.NetConn(), f: f}

	var (
		c *dtls.Conn
		e error
	)

	if srv {
		c, e = dtls.Server(w, cfg)
	} else {
		c, e = dtls.Client(w, cfg)
	}

	if e != nil {
		f.st.Store(uint32(StateClosed))
		return nil, ErrorHandshake.Error(e)
	}

	f.st.Store(uint32(StateConnected))
	f.h.Store(true)

	return &dtlsCnx{
		Connection: libcnx.New(c, libcnx.TypeDTLS, o.l),
		f:          f,
	}, nil
}

type flow struct {
	st atomic.Uint32 // State
	rt atomic.Uint64 // handshake retransmissions
	h  atomic.Bool   // handshake done, stop counting
}

func (o *flow) State() State {
	return State(o.st.Load())
}

func (o *flow) Retransmissions() uint64 {
	return o.rt.Load()
}

// countConn counts repeated handshake flights: any write past the first of
// identical length during the handshake window is taken as a resend.
type countConn struct {
	net.Conn

	f *flow
	p atomic.Int64 // previous write size
}

func (o *countConn) Write(b []byte) (int, error) {
	if !o.f.h.Load() {
		if int64(len(b)) == o.p.Load() {
			o.f.rt.Add(1)
		}
		o.p.Store(int64(len(b)))
	}

	return o.Conn.Write(b)
}

type dtlsCnx struct {
	libcnx.Connection
	f *flow
}

func (o *dtlsCnx) State() State {
	return o.f.State()
}

func (o *dtlsCnx) Retransmissions() uint64 {
	return o.f.Retransmissions()
}

func (o *dtlsCnx) Close() error {
	o.f.st.Store(uint32(StateClosing))
	e := o.Connection.Close()
	o.f.st.Store(uint32(StateClosed))
	return e
}
