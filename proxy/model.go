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

package proxy

import (
	"context"
	"net"
	"net/netip"
	"os"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

type cli struct {
	c Config
	l liblog.FuncLog
}

func (o *cli) logDebug(msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(loglvl.DebugLevel, msg, arg...).Log()
	}
}

func (o *cli) step() time.Duration {
	if t := o.c.StepTimeout.Time(); t > 0 {
		return t
	}

	return defaultStepTimeout
}

func (o *cli) Connect(ctx context.Context, host string, port uint16) (net.Conn, liberr.Error) {
	if len(host) == 0 || port == 0 {
		return nil, ErrorTargetInvalid.Error(nil)
	}

	d := net.Dialer{}
	if t := o.c.ConnectTimeout.Time(); t > 0 {
		d.Timeout = t
	}

	c, e := d.DialContext(ctx, "tcp", o.c.Address)
	if e != nil {
		return nil, ErrorProxyConnect.Error(e)
	}

	var err liberr.Error
	var out net.Conn

	switch o.c.Kind {
	case TypeHTTP:
		out, err = o.connectHTTP(c, host, port)
	case TypeSocks4:
		out, err = o.connectSocks4(c, host, port)
	case TypeSocks5:
		out, err = o.connectSocks5(c, host, port)
	default:
		err = ErrorParamsInvalid.Error(nil)
	}

	if err != nil {
		_ = c.Close()
		return nil, err
	}

	// negotiation deadlines must not bleed into the tunnel
	_ = out.SetDeadline(time.Time{})
	return out, nil
}

// recvStep reads into p under the per-step deadline, classifying a missed
// deadline as a proxy timeout.
func (o *cli) recvStep(c net.Conn, p []byte) (int, liberr.Error) {
	_ = c.SetReadDeadline(time.Now().Add(o.step()))

	n, e := c.Read(p)
	if e != nil {
		if os.IsTimeout(e) {
			return n, ErrorProxyTimeout.Error(e)
		}
		return n, ErrorProxyResponse.Error(e)
	}

	return n, nil
}

// recvFull fills p entirely under the per-step deadline.
func (o *cli) recvFull(c net.Conn, p []byte) liberr.Error {
	got := 0

	for got < len(p) {
		n, e := o.recvStep(c, p[got:])
		if e != nil {
			return e
		}
		if n == 0 {
			return ErrorProxyResponse.Error(nil)
		}
		got += n
	}

	return nil
}

// resolveLocal resolves host to one address, preferring IPv4, honoring the
// configured DNS mode.
func (o *cli) resolveLocal(ctx context.Context, host string) (netip.Addr, liberr.Error) {
	if a, e := netip.ParseAddr(host); e == nil {
		return a.Unmap(), nil
	}

	if o.c.DNS == DNSNone {
		return netip.Addr{}, ErrorTargetInvalid.Error(nil)
	}

	l, e := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if e != nil || len(l) == 0 {
		return netip.Addr{}, ErrorTargetInvalid.Error(e)
	}

	for _, a := range l {
		if a.Unmap().Is4() {
			return a.Unmap(), nil
		}
	}

	return l[0].Unmap(), nil
}
