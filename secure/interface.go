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

// Package secure adapts the certificate configuration into live TLS and
// DTLS sessions wrapped as connections. TLS runs over crypto/tls, DTLS over
// pion; both share the same Config record.
package secure

import (
	"net"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	libtls "github.com/nabbar/golib/certificates"
	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
)

// DTLS datagram size bounds, bytes.
const (
	MTUDefault = 1200
	MTUMin     = 296
	MTUMax     = 65507
)

// Config carries everything the adapter needs to terminate or initiate a
// secured session. The embedded certificate configuration follows the
// shared certificates model; the flat fields mirror the command line.
type Config struct {
	// Certificates is the shared TLS material configuration (versions,
	// ciphers, curves, certs, CA pools, client-auth policy).
	Certificates libtls.Config `mapstructure:"certificates" json:"certificates" yaml:"certificates"`

	// CertFile / KeyFile is the PEM pair presented by this side.
	CertFile string `mapstructure:"certFile" json:"certFile" yaml:"certFile"`
	KeyFile  string `mapstructure:"keyFile" json:"keyFile" yaml:"keyFile"`

	// Verify requires and verifies the peer certificate.
	Verify bool `mapstructure:"verify" json:"verify" yaml:"verify"`

	// TrustFile is an explicit CA bundle overriding the system pool.
	TrustFile string `mapstructure:"trustFile" json:"trustFile" yaml:"trustFile"`

	// CRLFile is an optional PEM/DER revocation list checked against the
	// peer chain during verification.
	CRLFile string `mapstructure:"crlFile" json:"crlFile" yaml:"crlFile"`

	// Ciphers restricts the cipher suites, by name.
	Ciphers []string `mapstructure:"ciphers" json:"ciphers" yaml:"ciphers"`

	// ServerName is the SNI sent on connect and checked on verify.
	ServerName string `mapstructure:"serverName" json:"serverName" yaml:"serverName"`

	// ALPN is the application protocol list offered on the handshake.
	ALPN []string `mapstructure:"alpn" json:"alpn" yaml:"alpn"`

	// HandshakeTimeout bounds the handshake, defaulting to 30s.
	HandshakeTimeout libdur.Duration `mapstructure:"handshakeTimeout" json:"handshakeTimeout" yaml:"handshakeTimeout"`

	// MTU is the DTLS datagram ceiling, clamped to [MTUMin, MTUMax].
	MTU int `mapstructure:"mtu" json:"mtu" yaml:"mtu" validate:"omitempty,min=0,max=65507"`
}

// State is the lifecycle of a DTLS flow.
type State uint8

const (
	StateInitial State = iota
	StateCookieExchange
	StateHandshake
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateCookieExchange:
		return "cookie-exchange"
	case StateHandshake:
		return "handshake"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}

	return ""
}

// Adapter terminates and initiates secured sessions over raw transports.
type Adapter interface {
	// ConnectTLS runs the client handshake over the given stream socket and
	// returns the secured connection.
	ConnectTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error)

	// AcceptTLS runs the server handshake over an accepted stream socket.
	AcceptTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error)

	// ConnectDTLS runs the client handshake over a connected UDP socket,
	// preserving datagram boundaries on the secured flow.
	ConnectDTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error)

	// AcceptDTLS runs the server handshake over one peer's UDP flow.
	AcceptDTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error)

	// ListenDTLS binds a DTLS listener on the given UDP address; every
	// accepted session arrives already handshaken.
	ListenDTLS(addr *net.UDPAddr) (net.Listener, liberr.Error)

	// MTU returns the effective DTLS datagram ceiling.
	MTU() int
}

// New validates the configuration and builds the adapter.
func New(cfg Config, srv bool, log liblog.FuncLog) (Adapter, liberr.Error) {
	a := &adp{
		c: cfg,
		s: srv,
		l: log,
	}

	if e := a.build(); e != nil {
		return nil, e
	}

	return a, nil
}
