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

// Package server is the listen-side runtime: it binds one or two stream
// listeners (dual-stack when the family is unforced and no host is given),
// gates every accepted peer through the access list before a single user
// byte is read, optionally terminates TLS, and dispatches each connection
// to the configured handler inline or on a bounded worker.
//
// The datagram variant keeps a pseudo-session table keyed by source
// address, see the UDP type.
package server

import (
	"context"

	libacc "github.com/whit3rabbit/zigcat/access"
	libcnx "github.com/whit3rabbit/zigcat/connection"
	libsec "github.com/whit3rabbit/zigcat/secure"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
)

// Handler runs one accepted connection. The handler owns the connection
// and must close it before returning.
type Handler func(ctx context.Context, cnx libcnx.Connection)

// Config describes the listener.
type Config struct {
	// Transport selects the stream flavor: TCP, Unix or SCTP. The UDP
	// transport is served by the UDP pseudo-session type; DTLS listeners
	// come from the secure adapter's ListenDTLS.
	Transport libtpt.Transport `mapstructure:"transport" json:"transport" yaml:"transport"`

	// Address is the bind host; empty selects the dual-stack wildcard.
	Address string `mapstructure:"address" json:"address" yaml:"address"`

	// Port is the listen port for the IP transports.
	Port int `mapstructure:"port" json:"port" yaml:"port" validate:"omitempty,min=0,max=65535"`

	// Path is the socket file for the Unix transport.
	Path string `mapstructure:"path" json:"path" yaml:"path"`

	// IP4Only / IP6Only force one address family.
	IP4Only bool `mapstructure:"ip4only" json:"ip4only" yaml:"ip4only"`
	IP6Only bool `mapstructure:"ip6only" json:"ip6only" yaml:"ip6only"`

	// KeepListening loops after a completed handler instead of exiting.
	KeepListening bool `mapstructure:"keepListening" json:"keepListening" yaml:"keepListening"`

	// MaxConns bounds the concurrent per-connection workers; zero runs
	// each handler inline on the accept loop.
	MaxConns int `mapstructure:"maxConns" json:"maxConns" yaml:"maxConns" validate:"omitempty,min=0"`

	// AcceptTimeout bounds each accept wait; zero uses the internal turn.
	AcceptTimeout libdur.Duration `mapstructure:"acceptTimeout" json:"acceptTimeout" yaml:"acceptTimeout"`
}

// Server is one running listener.
type Server interface {
	// Listen binds and serves until the context ends or Close is called.
	Listen(ctx context.Context) liberr.Error

	// IsRunning reports whether the accept loop is live.
	IsRunning() bool

	// OpenConnections returns the number of handlers currently running.
	OpenConnections() int64

	// Rejected returns the count of peers refused by the access list.
	Rejected() uint64

	// Close stops the accept loops and releases the listeners.
	Close() error
}

// New builds a stream server. The access list may be nil to admit every
// peer; the adapter may be nil for clear traffic.
func New(cfg Config, h Handler, acl libacc.List, adp libsec.Adapter, log liblog.FuncLog) (Server, liberr.Error) {
	if h == nil {
		return nil, ErrorHandlerMissing.Error(nil)
	}

	if !cfg.Transport.IsStream() {
		return nil, ErrorTransportUnsupported.Error(nil)
	}

	if cfg.Transport == libtpt.Unix && len(cfg.Path) == 0 {
		return nil, ErrorParamsInvalid.Error(nil)
	}

	return &srv{
		f: cfg,
		h: h,
		a: acl,
		t: adp,
		l: log,
	}, nil
}
