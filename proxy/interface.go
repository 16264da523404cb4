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

// Package proxy implements the outbound traversal clients: HTTP CONNECT,
// SOCKS4 and SOCKS5. Each negotiation is a strict state sequence over the
// freshly dialed proxy socket, with a read deadline on every step; on
// success the same socket is returned ready for user bytes, with no
// negotiation bytes left unconsumed.
package proxy

import (
	"context"
	"net"
	"strings"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
)

// Type selects the traversal protocol.
type Type uint8

const (
	TypeNone Type = iota
	TypeHTTP
	TypeSocks4
	TypeSocks5
)

func (t Type) String() string {
	switch t {
	case TypeHTTP:
		return "http"
	case TypeSocks4:
		return "socks4"
	case TypeSocks5:
		return "socks5"
	}

	return ""
}

// ParseType returns the proxy type matching the given string.
func ParseType(s string) (Type, liberr.Error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http", "connect":
		return TypeHTTP, nil
	case "socks4":
		return TypeSocks4, nil
	case "socks5", "socks":
		return TypeSocks5, nil
	}

	return TypeNone, ErrorParamsInvalid.Error(nil)
}

// DNSMode controls where the tunnel target hostname is resolved.
type DNSMode uint8

const (
	// DNSRemote hands the hostname to the proxy (SOCKS5 domain ATYP).
	DNSRemote DNSMode = iota
	// DNSLocal resolves the hostname before the request and sends a literal.
	DNSLocal
	// DNSBoth resolves locally and falls back to remote on failure.
	DNSBoth
	// DNSNone refuses hostnames: only literal addresses pass.
	DNSNone
)

// ParseDNSMode returns the DNS mode matching the given string.
func ParseDNSMode(s string) (DNSMode, liberr.Error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "remote":
		return DNSRemote, nil
	case "local":
		return DNSLocal, nil
	case "both":
		return DNSBoth, nil
	case "none":
		return DNSNone, nil
	}

	return DNSRemote, ErrorParamsInvalid.Error(nil)
}

// Config describes the proxy hop.
type Config struct {
	// Address is the proxy host:port.
	Address string `mapstructure:"address" json:"address" yaml:"address" validate:"required,hostname_port"`

	// Kind selects the traversal protocol.
	Kind Type `mapstructure:"kind" json:"kind" yaml:"kind"`

	// Username / Password enable proxy authentication when non-empty.
	Username string `mapstructure:"username" json:"username" yaml:"username"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`

	// DNS selects where tunnel hostnames are resolved.
	DNS DNSMode `mapstructure:"dns" json:"dns" yaml:"dns"`

	// ConnectTimeout bounds the TCP connect to the proxy itself.
	ConnectTimeout libdur.Duration `mapstructure:"connectTimeout" json:"connectTimeout" yaml:"connectTimeout"`

	// StepTimeout bounds each negotiation read, defaulting to 30s.
	StepTimeout libdur.Duration `mapstructure:"stepTimeout" json:"stepTimeout" yaml:"stepTimeout"`
}

// Client negotiates a tunnel through the configured proxy.
type Client interface {
	// Connect dials the proxy and negotiates a tunnel to host:port.
	// The returned socket carries user bytes only.
	Connect(ctx context.Context, host string, port uint16) (net.Conn, liberr.Error)
}

// New validates the configuration and returns the negotiation client.
func New(cfg Config, log liblog.FuncLog) (Client, liberr.Error) {
	if len(cfg.Address) == 0 || cfg.Kind == TypeNone {
		return nil, ErrorParamsInvalid.Error(nil)
	}

	return &cli{
		c: cfg,
		l: log,
	}, nil
}

const defaultStepTimeout = 30 * time.Second
