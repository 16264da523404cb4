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

package server

import (
	"context"
	"net"
	"strconv"

	libcnx "github.com/whit3rabbit/zigcat/connection"
	libpxy "github.com/whit3rabbit/zigcat/proxy"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	"github.com/ishidawataru/sctp"
)

// DialConfig describes one outbound connect.
type DialConfig struct {
	Transport libtpt.Transport `mapstructure:"transport" json:"transport" yaml:"transport"`

	// Host and Port address the IP transports; Path addresses Unix.
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port int    `mapstructure:"port" json:"port" yaml:"port" validate:"omitempty,min=0,max=65535"`
	Path string `mapstructure:"path" json:"path" yaml:"path"`

	// SourceHost / SourcePort bind the local endpoint before connecting.
	SourceHost string `mapstructure:"sourceHost" json:"sourceHost" yaml:"sourceHost"`
	SourcePort int    `mapstructure:"sourcePort" json:"sourcePort" yaml:"sourcePort" validate:"omitempty,min=0,max=65535"`

	IP4Only bool `mapstructure:"ip4only" json:"ip4only" yaml:"ip4only"`
	IP6Only bool `mapstructure:"ip6only" json:"ip6only" yaml:"ip6only"`

	// ConnectTimeout bounds the connect; zero means the system default.
	ConnectTimeout libdur.Duration `mapstructure:"connectTimeout" json:"connectTimeout" yaml:"connectTimeout"`

	// Proxy routes the connect through a traversal hop when non-nil.
	// Only the TCP transport can traverse a proxy.
	Proxy *libpxy.Config `mapstructure:"proxy" json:"proxy" yaml:"proxy"`
}

// Dial connects to the configured target and wraps the socket. Securing
// the connection (TLS, DTLS) is the caller's concern.
func Dial(ctx context.Context, cfg DialConfig, log liblog.FuncLog) (libcnx.Connection, liberr.Error) {
	if cfg.Proxy != nil {
		if cfg.Transport != libtpt.TCP {
			return nil, ErrorTransportUnsupported.Error(nil)
		}

		p, e := libpxy.New(*cfg.Proxy, log)
		if e != nil {
			return nil, e
		}

		c, e := p.Connect(ctx, cfg.Host, uint16(cfg.Port))
		if e != nil {
			return nil, e
		}

		return libcnx.New(c, libcnx.TypePlain, log), nil
	}

	switch cfg.Transport {
	case libtpt.Unix:
		return dialUnix(ctx, cfg, log)
	case libtpt.SCTP:
		return dialSCTP(cfg, log)
	}

	return dialIP(ctx, cfg, log)
}

func dialIP(ctx context.Context, cfg DialConfig, log liblog.FuncLog) (libcnx.Connection, liberr.Error) {
	d := net.Dialer{}

	if t := cfg.ConnectTimeout.Time(); t > 0 {
		d.Timeout = t
	}

	n := cfg.Transport.Network(cfg.IP4Only, cfg.IP6Only)

	if len(cfg.SourceHost) > 0 || cfg.SourcePort > 0 {
		la, e := localAddr(n, cfg.SourceHost, cfg.SourcePort)
		if e != nil {
			return nil, e
		}
		d.LocalAddr = la
	}

	c, e := d.DialContext(ctx, n, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if e != nil {
		return nil, ErrorDialFailed.Error(e)
	}

	return libcnx.New(c, libcnx.TypePlain, log), nil
}

func dialUnix(ctx context.Context, cfg DialConfig, log liblog.FuncLog) (libcnx.Connection, liberr.Error) {
	d := net.Dialer{}

	if t := cfg.ConnectTimeout.Time(); t > 0 {
		d.Timeout = t
	}

	c, e := d.DialContext(ctx, "unix", cfg.Path)
	if e != nil {
		return nil, ErrorDialFailed.Error(e)
	}

	// a client does not own the socket file, no cleanup path
	return libcnx.NewUnix(c, "", log), nil
}

func dialSCTP(cfg DialConfig, log liblog.FuncLog) (libcnx.Connection, liberr.Error) {
	ip, err := resolveIP(cfg.Host, cfg.IP4Only, cfg.IP6Only)
	if err != nil {
		return nil, err
	}

	var la *sctp.SCTPAddr
	if len(cfg.SourceHost) > 0 || cfg.SourcePort > 0 {
		sip, e := resolveIP(cfg.SourceHost, cfg.IP4Only, cfg.IP6Only)
		if e != nil {
			return nil, e
		}
		la = &sctp.SCTPAddr{IPAddrs: []net.IPAddr{{IP: sip}}, Port: cfg.SourcePort}
	}

	c, e := sctp.DialSCTP("sctp", la, &sctp.SCTPAddr{
		IPAddrs: []net.IPAddr{{IP: ip}},
		Port:    cfg.Port,
	})
	if e != nil {
		return nil, ErrorDialFailed.Error(e)
	}

	return libcnx.New(c, libcnx.TypePlain, log), nil
}

func localAddr(network, host string, port int) (net.Addr, liberr.Error) {
	var ip net.IP

	if len(host) > 0 {
		r, e := net.ResolveIPAddr("ip", host)
		if e != nil {
			return nil, ErrorResolveFailed.Error(e)
		}
		ip = r.IP
	}

	switch network {
	case "udp", "udp4", "udp6":
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}

	return &net.TCPAddr{IP: ip, Port: port}, nil
}
