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

package main

import (
	"context"
	"io"
	"net"
	"net/netip"
	"os"
	"strings"
	"time"

	libacc "github.com/whit3rabbit/zigcat/access"
	libbrg "github.com/whit3rabbit/zigcat/bridge"
	libcfg "github.com/whit3rabbit/zigcat/config"
	libcnx "github.com/whit3rabbit/zigcat/connection"
	librly "github.com/whit3rabbit/zigcat/relay"
	libsec "github.com/whit3rabbit/zigcat/secure"
	libsrv "github.com/whit3rabbit/zigcat/server"
	libtnt "github.com/whit3rabbit/zigcat/telnet"
	libtrf "github.com/whit3rabbit/zigcat/transfer"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	"github.com/fatih/color"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

func defaultBridge() libbrg.Config {
	return libbrg.DefaultConfig()
}

// splitCommand cuts a program invocation into path and arguments.
func splitCommand(s string) []string {
	return strings.Fields(s)
}

// execute runs the tool in the configured mode and returns the first fatal
// error, already classified for the exit-code mapping.
func execute(ctx context.Context, cfg *libcfg.Config, log liblog.FuncLog) liberr.Error {
	if cfg.Mode == libcfg.ModeListen {
		return runListen(ctx, cfg, log)
	}

	return runConnect(ctx, cfg, log)
}

// buildSinks opens the hex-dump and output-logger tees.
func buildSinks(cfg *libcfg.Config) ([]io.Writer, []io.Closer, liberr.Error) {
	var (
		w []io.Writer
		c []io.Closer
	)

	if cfg.HexDump {
		var out io.Writer = os.Stderr

		if cfg.HexDumpFile != "-" {
			f, e := libtrf.NewOutputLogger(cfg.HexDumpFile, cfg.Append)
			if e != nil {
				return nil, nil, libcfg.ErrorSinkOpen.Error(e)
			}
			out = f
			c = append(c, f)
		}

		h := libtrf.NewHexDump(out)
		w = append(w, h)
		c = append(c, h)
	}

	if len(cfg.OutputFile) > 0 {
		f, e := libtrf.NewOutputLogger(cfg.OutputFile, cfg.Append)
		if e != nil {
			return nil, nil, libcfg.ErrorSinkOpen.Error(e)
		}

		w = append(w, f)
		c = append(c, f)
	}

	return w, c, nil
}

func closeAll(c []io.Closer) {
	for _, x := range c {
		_ = x.Close()
	}
}

// secureAdapter builds the TLS/DTLS adapter when enabled.
func secureAdapter(cfg *libcfg.Config, srv bool, log liblog.FuncLog) (libsec.Adapter, liberr.Error) {
	if !cfg.TLS && cfg.Transport != libtpt.DTLS {
		return nil, nil
	}

	return libsec.New(cfg.Secure, srv, log)
}

func runConnect(ctx context.Context, cfg *libcfg.Config, log liblog.FuncLog) liberr.Error {
	if cfg.Proxy != nil {
		cfg.Client.Proxy = cfg.Proxy
	}

	cnx, err := libsrv.Dial(ctx, cfg.Client, log)
	if err != nil {
		return err
	}

	if cfg.ZeroIO {
		// scan mode: the successful connect is the whole result
		_ = cnx.Close()
		return nil
	}

	adp, err := secureAdapter(cfg, false, log)
	if err != nil {
		_ = cnx.Close()
		return err
	}

	if adp != nil {
		var s libcnx.Connection

		if cfg.Transport == libtpt.DTLS {
			s, err = adp.ConnectDTLS(cnx)
		} else {
			s, err = adp.ConnectTLS(cnx)
		}

		if err != nil {
			_ = cnx.Close()
			return err
		}

		cnx = s
	}

	if cfg.Telnet {
		t := libtnt.New(cnx, false, log)
		cnx = t
	}

	defer func() {
		_ = cnx.CloseWithCleanup()
	}()

	return runTransfer(ctx, cfg, cnx, false, log)
}

func runTransfer(ctx context.Context, cfg *libcfg.Config, cnx libcnx.Connection, server bool, log liblog.FuncLog) liberr.Error {
	c := cfg.Transfer
	c.Server = server

	t := libtrf.New(cnx, os.Stdin, os.Stdout, c, log)

	w, cl, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeAll(cl)

	if len(w) > 0 {
		t.AddSink(w...)
	}

	return t.Run(ctx)
}

func runListen(ctx context.Context, cfg *libcfg.Config, log liblog.FuncLog) liberr.Error {
	acl, err := cfg.BuildAccessList(nil)
	if err != nil {
		return err
	}

	if cfg.Transport.IsDatagram() {
		return runListenDatagram(ctx, cfg, acl, log)
	}

	adp, err := secureAdapter(cfg, true, log)
	if err != nil {
		return err
	}

	handler, err := buildHandler(cfg, log)
	if err != nil {
		return err
	}

	var rly librly.Relay

	if cfg.Broker || cfg.Chat {
		if rly, err = librly.New(cfg.Relay, log); err != nil {
			return err
		}

		go rly.Run(ctx)

		handler = func(ctx context.Context, cnx libcnx.Connection) {
			// the relay takes ownership of the connection
			rly.Accept(cnx)
		}
	}

	srv, err := libsrv.New(cfg.Server, handler, acl, adp, log)
	if err != nil {
		return err
	}

	defer func() {
		if rly != nil {
			rly.Shutdown()
		}
	}()

	res := make(chan liberr.Error, 1)

	go func() {
		res <- srv.Listen(ctx)
	}()

	// privileges drop once the sockets are bound
	if len(cfg.DropUser) > 0 {
		for !srv.IsRunning() {
			select {
			case e := <-res:
				return e
			case <-time.After(10 * time.Millisecond):
			}
		}

		if e := dropPrivileges(cfg.DropUser, log); e != nil {
			_ = srv.Close()
			<-res
			return e
		}
	}

	return <-res
}

// buildHandler selects the per-connection engine: exec bridge or transfer.
func buildHandler(cfg *libcfg.Config, log liblog.FuncLog) (libsrv.Handler, liberr.Error) {
	if cfg.Exec != nil {
		if e := libbrg.CheckPolicy(true, cfg.HasAccessRules(), cfg.AllowDangerous, log); e != nil {
			return nil, e
		}

		warnExec(cfg)

		bc := *cfg.Exec

		return func(ctx context.Context, cnx libcnx.Connection) {
			defer func() {
				_ = cnx.CloseWithCleanup()
			}()

			cnx = wrapTelnet(cfg, cnx, log)

			b, e := libbrg.New(bc, log)
			if e != nil {
				return
			}

			_ = b.Run(ctx, cnx)
		}, nil
	}

	return func(ctx context.Context, cnx libcnx.Connection) {
		defer func() {
			_ = cnx.CloseWithCleanup()
		}()

		cnx = wrapTelnet(cfg, cnx, log)

		_ = runTransfer(ctx, cfg, cnx, true, log)
	}, nil
}

func wrapTelnet(cfg *libcfg.Config, cnx libcnx.Connection, log liblog.FuncLog) libcnx.Connection {
	if !cfg.Telnet {
		return cnx
	}

	t := libtnt.New(cnx, true, log)

	// the server side opens the option negotiation
	if e := t.Negotiate(); e != nil {
		if l := log(); l != nil {
			l.Entry(loglvl.WarnLevel, "telnet negotiation failed").ErrorAdd(true, e).Log()
		}
	}

	return t
}

func warnExec(cfg *libcfg.Config) {
	c := color.New(color.FgRed, color.Bold)
	_, _ = c.Fprintln(os.Stderr, "zigcat: bridging connections to a command; every admitted peer controls it")
}

// runListenDatagram serves the UDP pseudo-session, or a DTLS listener when
// the transport is secured.
func runListenDatagram(ctx context.Context, cfg *libcfg.Config, acl libacc.List, log liblog.FuncLog) liberr.Error {
	if cfg.Exec != nil {
		// datagram flows have no per-connection byte stream to bridge
		if l := log(); l != nil {
			l.Entry(loglvl.WarnLevel, "exec is unsupported on datagram transports, ignoring").Log()
		}
	}

	if cfg.Transport == libtpt.DTLS {
		return runListenDTLS(ctx, cfg, acl, log)
	}

	u := libsrv.NewUDP(cfg.Datagram, acl, log)

	w, cl, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeAll(cl)

	if len(w) > 0 {
		u.AddSink(w...)
	}

	go func() {
		<-ctx.Done()
		_ = u.Close()
	}()

	return u.Listen(ctx)
}

func ipFromUDP(a *net.UDPAddr) (netip.Addr, bool) {
	r, ok := netip.AddrFromSlice(a.IP)
	if !ok {
		return netip.Addr{}, false
	}

	return r.Unmap(), true
}

func runListenDTLS(ctx context.Context, cfg *libcfg.Config, acl libacc.List, log liblog.FuncLog) liberr.Error {
	adp, err := secureAdapter(cfg, true, log)
	if err != nil {
		return err
	}

	addr := &net.UDPAddr{Port: cfg.Datagram.Port}
	if len(cfg.Datagram.Address) > 0 {
		r, e := net.ResolveIPAddr("ip", cfg.Datagram.Address)
		if e != nil {
			return libsrv.ErrorResolveFailed.Error(e)
		}
		addr.IP = r.IP
	}

	l, err := adp.ListenDTLS(addr)
	if err != nil {
		return err
	}

	defer func() {
		_ = l.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		c, e := l.Accept()
		if e != nil {
			if ctx.Err() != nil {
				return nil
			}
			return libsrv.ErrorAcceptFailed.Error(e)
		}

		if acl != nil {
			if a, k := c.RemoteAddr().(*net.UDPAddr); k {
				if ip, ok := ipFromUDP(a); ok && !acl.Allowed(ip) {
					_ = c.Close()
					continue
				}
			}
		}

		cnx := libcnx.New(c, libcnx.TypeDTLS, log)

		if e := runTransfer(ctx, cfg, cnx, true, log); e != nil {
			_ = cnx.Close()
			return e
		}

		_ = cnx.Close()

		if !cfg.Datagram.KeepListening {
			return nil
		}
	}
}
