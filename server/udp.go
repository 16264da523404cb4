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
	"io"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	libacc "github.com/whit3rabbit/zigcat/access"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

// udpBuffer is the datagram read size, large enough for any UDP payload.
const udpBuffer = 65535

// UDPConfig describes the datagram pseudo-session server.
type UDPConfig struct {
	Address string `mapstructure:"address" json:"address" yaml:"address"`
	Port    int    `mapstructure:"port" json:"port" yaml:"port" validate:"omitempty,min=0,max=65535"`

	IP4Only bool `mapstructure:"ip4only" json:"ip4only" yaml:"ip4only"`
	IP6Only bool `mapstructure:"ip6only" json:"ip6only" yaml:"ip6only"`

	// KeepListening keeps serving after the first datagram.
	KeepListening bool `mapstructure:"keepListening" json:"keepListening" yaml:"keepListening"`

	// RecvOnly suppresses the echo back to the source.
	RecvOnly bool `mapstructure:"recvOnly" json:"recvOnly" yaml:"recvOnly"`

	// IdleTimeout stops the loop without traffic; zero uses the policy
	// default for datagram servers.
	IdleTimeout libdur.Duration `mapstructure:"idleTimeout" json:"idleTimeout" yaml:"idleTimeout"`
}

// UDP is the running datagram pseudo-session server. Sources are interned
// into a client table on first sight; each datagram is teed to the sinks
// and echoed back unless receive-only.
type UDP interface {
	// Listen binds and loops until the context ends or Close is called.
	Listen(ctx context.Context) liberr.Error

	// AddSink tees received datagrams into w.
	AddSink(w ...io.Writer)

	// Clients returns how many distinct sources were seen.
	Clients() int

	// Rejected returns the count of datagrams dropped by the access list.
	Rejected() uint64

	// Close stops the loop.
	Close() error
}

// NewUDP builds the datagram server. The access list may be nil.
func NewUDP(cfg UDPConfig, acl libacc.List, log liblog.FuncLog) UDP {
	return &udp{
		f: cfg,
		a: acl,
		l: log,
	}
}

type udp struct {
	f UDPConfig
	a libacc.List
	l liblog.FuncLog

	m   sync.Mutex
	c   *net.UDPConn
	ids map[netip.AddrPort]uint64
	seq uint64
	w   []io.Writer

	stp atomic.Bool
	rej atomic.Uint64
}

func (o *udp) log(lvl loglvl.Level, msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(lvl, msg, arg...).Log()
	}
}

func (o *udp) AddSink(w ...io.Writer) {
	o.m.Lock()
	defer o.m.Unlock()

	o.w = append(o.w, w...)
}

func (o *udp) Clients() int {
	o.m.Lock()
	defer o.m.Unlock()

	return len(o.ids)
}

func (o *udp) Rejected() uint64 {
	return o.rej.Load()
}

func (o *udp) Close() error {
	o.stp.Store(true)

	o.m.Lock()
	defer o.m.Unlock()

	if o.c != nil {
		e := o.c.Close()
		o.c = nil
		return e
	}

	return nil
}

func (o *udp) Listen(ctx context.Context) liberr.Error {
	n := libtpt.UDP.Network(o.f.IP4Only, o.f.IP6Only)

	a, e := net.ResolveUDPAddr(n, net.JoinHostPort(o.f.Address, strconv.Itoa(o.f.Port)))
	if e != nil {
		return ErrorResolveFailed.Error(e)
	}

	c, e := net.ListenUDP(n, a)
	if e != nil {
		return ErrorListenFailed.Error(e)
	}

	o.m.Lock()
	o.c = c
	o.ids = make(map[netip.AddrPort]uint64)
	o.m.Unlock()

	defer func() {
		_ = o.Close()
	}()

	idle := o.f.IdleTimeout.Time()
	if idle == 0 {
		// policy default for datagram servers
		idle = 30 * time.Second
	}

	var (
		buf  = make([]byte, udpBuffer)
		last = time.Now()
	)

	for {
		if o.stp.Load() || ctx.Err() != nil {
			return nil
		}

		if idle > 0 && time.Since(last) > idle {
			o.log(loglvl.InfoLevel, "udp idle timeout")
			return nil
		}

		_ = c.SetReadDeadline(time.Now().Add(time.Second))

		n, src, re := c.ReadFromUDPAddrPort(buf)

		if re != nil {
			if isTimeout(re) {
				continue
			}
			if o.stp.Load() {
				return nil
			}
			return ErrorAcceptFailed.Error(re)
		}

		last = time.Now()

		// the access gate runs before the payload is used anywhere
		if o.a != nil && !o.a.Allowed(src.Addr().Unmap()) {
			o.rej.Add(1)
			continue
		}

		o.intern(src)
		o.tee(buf[:n])

		if !o.f.RecvOnly {
			if _, we := c.WriteToUDPAddrPort(buf[:n], src); we != nil {
				o.log(loglvl.WarnLevel, "udp echo to %s failed", src.String())
			}
		}

		if !o.f.KeepListening {
			return nil
		}
	}
}

// intern assigns a stable client id to a newly seen source address.
func (o *udp) intern(src netip.AddrPort) {
	o.m.Lock()
	defer o.m.Unlock()

	if _, k := o.ids[src]; k {
		return
	}

	o.seq++
	o.ids[src] = o.seq
	o.log(loglvl.InfoLevel, "new udp client #%d from %s", o.seq, src.String())
}

func (o *udp) tee(p []byte) {
	o.m.Lock()
	w := o.w
	o.m.Unlock()

	for _, s := range w {
		if _, e := s.Write(p); e != nil {
			o.log(loglvl.WarnLevel, "udp sink write failed")
		}
	}
}
