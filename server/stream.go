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
	"errors"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"
	libsp "github.com/whit3rabbit/zigcat/sockpath"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	libacc "github.com/whit3rabbit/zigcat/access"
	libsec "github.com/whit3rabbit/zigcat/secure"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libsem "github.com/nabbar/golib/semaphore"
	"github.com/ishidawataru/sctp"
)

// acceptTurn is the polling period of the accept loop when no explicit
// accept timeout is configured.
const acceptTurn = time.Second

type srv struct {
	f Config
	h Handler
	a libacc.List
	t libsec.Adapter
	l liblog.FuncLog

	m   sync.Mutex
	lis []net.Listener
	sp  libsp.Lifecycle

	run atomic.Bool
	stp atomic.Bool
	cnt atomic.Int64
	rej atomic.Uint64
	one atomic.Bool // a handler completed, single-shot mode may exit
}

func (o *srv) log(lvl loglvl.Level, msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(lvl, msg, arg...).Log()
	}
}

func (o *srv) IsRunning() bool {
	return o.run.Load()
}

func (o *srv) OpenConnections() int64 {
	return o.cnt.Load()
}

func (o *srv) Rejected() uint64 {
	return o.rej.Load()
}

func (o *srv) Close() error {
	o.stp.Store(true)

	o.m.Lock()
	defer o.m.Unlock()

	for _, l := range o.lis {
		_ = l.Close()
	}
	o.lis = nil

	if o.sp != nil {
		o.sp.Cleanup()
		o.sp = nil
	}

	return nil
}

func (o *srv) Listen(ctx context.Context) liberr.Error {
	lst, err := o.bind()
	if err != nil {
		return err
	}

	o.m.Lock()
	o.lis = lst
	o.m.Unlock()

	o.run.Store(true)
	defer o.run.Store(false)
	defer func() {
		_ = o.Close()
	}()

	var (
		wg  sync.WaitGroup
		sem libsem.Semaphore
	)

	if o.f.MaxConns > 0 {
		sem = libsem.New(ctx, int64(o.f.MaxConns), false)
		defer sem.DeferMain()
	}

	for _, l := range lst {
		wg.Add(1)
		go func(l net.Listener) {
			defer wg.Done()
			o.acceptLoop(ctx, l, sem)
		}(l)
	}

	// shutdown watcher: context end closes the listeners, waking accepts
	go func() {
		<-ctx.Done()
		_ = o.Close()
	}()

	wg.Wait()
	return nil
}

// bind creates the listen sockets: two for the dual-stack wildcard, one
// otherwise.
func (o *srv) bind() ([]net.Listener, liberr.Error) {
	switch o.f.Transport {
	case libtpt.Unix:
		return o.bindUnix()
	case libtpt.SCTP:
		return o.bindSCTP()
	}

	return o.bindTCP()
}

func (o *srv) bindTCP() ([]net.Listener, liberr.Error) {
	var c net.ListenConfig

	p := strconv.Itoa(o.f.Port)

	if len(o.f.Address) == 0 && !o.f.IP4Only && !o.f.IP6Only {
		// dual-stack: one socket per family, accepted concurrently
		l4, e4 := c.Listen(context.Background(), "tcp4", net.JoinHostPort("0.0.0.0", p))
		if e4 != nil {
			return nil, ErrorListenFailed.Error(e4)
		}

		l6, e6 := c.Listen(context.Background(), "tcp6", net.JoinHostPort("::", p))
		if e6 != nil {
			// single-stack host: keep the v4 socket alone
			o.log(loglvl.DebugLevel, "ipv6 wildcard bind failed, single socket only")
			return []net.Listener{l4}, nil
		}

		return []net.Listener{l4, l6}, nil
	}

	n := o.f.Transport.Network(o.f.IP4Only, o.f.IP6Only)

	l, e := c.Listen(context.Background(), n, net.JoinHostPort(o.f.Address, p))
	if e != nil {
		return nil, ErrorListenFailed.Error(e)
	}

	return []net.Listener{l}, nil
}

func (o *srv) bindUnix() ([]net.Listener, liberr.Error) {
	sp := libsp.New(o.f.Path, o.l)

	if e := sp.Prepare(); e != nil {
		return nil, e
	}

	restore := sp.ClampUmask()
	l, e := net.Listen("unix", o.f.Path)
	restore()

	if e != nil {
		return nil, ErrorListenFailed.Error(e)
	}

	// the listener would remove the path on close; the lifecycle owns it
	if u, k := l.(*net.UnixListener); k {
		u.SetUnlinkOnClose(false)
	}

	sp.Audit()

	o.m.Lock()
	o.sp = sp
	o.m.Unlock()

	return []net.Listener{l}, nil
}

func (o *srv) bindSCTP() ([]net.Listener, liberr.Error) {
	ip, err := resolveIP(o.f.Address, o.f.IP4Only, o.f.IP6Only)
	if err != nil {
		return nil, err
	}

	l, e := sctp.ListenSCTP("sctp", &sctp.SCTPAddr{
		IPAddrs: []net.IPAddr{{IP: ip}},
		Port:    o.f.Port,
	})
	if e != nil {
		return nil, ErrorListenFailed.Error(e)
	}

	return []net.Listener{l}, nil
}

func (o *srv) acceptLoop(ctx context.Context, l net.Listener, sem libsem.Semaphore) {
	for {
		if o.stp.Load() || ctx.Err() != nil {
			return
		}

		if !o.f.KeepListening && o.one.Load() {
			return
		}

		o.armAcceptDeadline(l)

		c, e := l.Accept()

		if e != nil {
			switch {
			case o.stp.Load(), errors.Is(e, net.ErrClosed):
				return

			case isTimeout(e):
				continue

			case errors.Is(e, syscall.EINTR), errors.Is(e, syscall.ECONNABORTED):
				// transient accept failures are not fatal
				o.log(loglvl.DebugLevel, "transient accept error: %s", e.Error())
				continue
			}

			o.log(loglvl.ErrorLevel, "accept failed: %s", e.Error())
			return
		}

		o.dispatch(ctx, c, sem)

		if !o.f.KeepListening && o.one.Load() {
			return
		}
	}
}

func (o *srv) armAcceptDeadline(l net.Listener) {
	d, k := l.(interface{ SetDeadline(time.Time) error })
	if !k {
		return
	}

	t := acceptTurn
	if a := o.f.AcceptTimeout.Time(); a > 0 {
		t = a
	}

	_ = d.SetDeadline(time.Now().Add(t))
}

// dispatch gates the peer, wraps the socket, and runs the handler inline
// or on a bounded worker. The connection moves to exactly one owner.
func (o *srv) dispatch(ctx context.Context, c net.Conn, sem libsem.Semaphore) {
	if !o.admit(c) {
		return
	}

	cnx, ok := o.wrap(c)
	if !ok {
		return
	}

	run := func() {
		o.cnt.Add(1)
		defer o.cnt.Add(-1)
		defer o.one.Store(true)

		o.h(ctx, cnx)
	}

	if sem == nil {
		run()
		return
	}

	if e := sem.NewWorker(); e != nil {
		_ = cnx.Close()
		return
	}

	go func() {
		defer sem.DeferWorker()
		run()
	}()
}

// admit evaluates the access list against the peer address before any user
// byte is read. A denied peer is closed immediately.
func (o *srv) admit(c net.Conn) bool {
	if o.a == nil {
		return true
	}

	ip, ok := peerIP(c.RemoteAddr())

	// address-less transports (unix sockets) bypass IP filtering
	if !ok {
		return true
	}

	if o.a.Allowed(ip) {
		return true
	}

	o.rej.Add(1)
	o.log(loglvl.InfoLevel, "peer %s denied by access list", c.RemoteAddr().String())
	_ = c.Close()

	return false
}

func (o *srv) wrap(c net.Conn) (libcnx.Connection, bool) {
	var cnx libcnx.Connection

	if o.f.Transport == libtpt.Unix {
		cnx = libcnx.NewUnix(c, "", o.l)
	} else {
		cnx = libcnx.New(c, libcnx.TypePlain, o.l)
	}

	if o.t == nil {
		return cnx, true
	}

	s, e := o.t.AcceptTLS(cnx)
	if e != nil {
		o.log(loglvl.InfoLevel, "tls accept from %s failed: %s", c.RemoteAddr().String(), e.Error())
		_ = cnx.Close()
		return nil, false
	}

	return s, true
}

func peerIP(a net.Addr) (netip.Addr, bool) {
	var ip net.IP

	switch v := a.(type) {
	case *net.TCPAddr:
		ip = v.IP
	case *net.UDPAddr:
		ip = v.IP
	case *sctp.SCTPAddr:
		if len(v.IPAddrs) > 0 {
			ip = v.IPAddrs[0].IP
		}
	default:
		return netip.Addr{}, false
	}

	r, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}

	return r.Unmap(), true
}

func isTimeout(e error) bool {
	var n net.Error
	return errors.As(e, &n) && n.Timeout()
}

func resolveIP(host string, ip4, ip6 bool) (net.IP, liberr.Error) {
	if len(host) == 0 {
		if ip6 {
			return net.IPv6zero, nil
		}
		return net.IPv4zero, nil
	}

	l, e := net.ResolveIPAddr("ip", host)
	if e != nil {
		return nil, ErrorResolveFailed.Error(e)
	}

	if ip4 && l.IP.To4() == nil {
		return nil, ErrorResolveFailed.Error(nil)
	}

	return l.IP, nil
}
