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

// zigcat is a modern netcat: it connects, listens and brokers byte streams
// over TCP, UDP, SCTP, Unix sockets and DTLS, with TLS, proxy traversal,
// exec bridging, access control and a multi-client chat relay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	libcfg "github.com/whit3rabbit/zigcat/config"
	libpxy "github.com/whit3rabbit/zigcat/proxy"
	librly "github.com/whit3rabbit/zigcat/relay"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	"github.com/fatih/color"
	libdur "github.com/nabbar/golib/duration"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libsiz "github.com/nabbar/golib/size"
	spfcbr "github.com/spf13/cobra"
)

type flags struct {
	config string

	// resolved through viper: config-file values the flag set cannot carry
	transport libtpt.Transport
	host      string

	listen  bool
	udp     bool
	sctp    bool
	unix    string
	dtls    bool
	port    int
	source  string
	ip4     bool
	ip6     bool
	verbose int
	quiet   bool

	connectTimeout int64
	acceptTimeout  int64
	idleTimeout    int64
	waitTime       int64
	delay          int64

	sendOnly   bool
	recvOnly   bool
	closeOnEOF bool
	crlf       bool
	telnet     bool

	keep       bool
	maxConns   int
	broker     bool
	chat       bool
	maxClients int
	nickLen    int
	msgLen     int

	execProg  string
	execShell string
	allow     []string
	allowIP   []string
	deny      []string
	denyIP    []string

	ssl           bool
	sslCert       string
	sslKey        string
	sslVerify     bool
	sslTrust      string
	sslCRL        string
	sslCiphers    []string
	sslServerName string
	sslALPN       []string

	proxyAddr string
	proxyType string
	proxyAuth string
	proxyDNS  string

	hexDump    string
	outputFile string
	appendOut  bool

	allowDangerous bool
	requireAllow   bool
	dropUser       string
	zeroIO         bool
	noDNS          bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var f flags

	cmd := &spfcbr.Command{
		Use:           "zigcat [host] [port]",
		Short:         "modern netcat over tcp, udp, sctp, unix sockets and dtls",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          spfcbr.MaximumNArgs(2),
	}

	p := cmd.Flags()
	p.StringVar(&f.config, "config", "", "optional settings file (yaml, json or toml)")
	p.BoolVarP(&f.listen, "listen", "l", false, "listen mode")
	p.BoolVarP(&f.udp, "udp", "u", false, "use udp")
	p.BoolVar(&f.sctp, "sctp", false, "use sctp")
	p.StringVarP(&f.unix, "unix", "U", "", "use a unix socket at the given path")
	p.BoolVar(&f.dtls, "dtls", false, "use dtls over udp")
	p.IntVarP(&f.port, "port", "p", 0, "source port in connect mode, listen port otherwise")
	p.StringVarP(&f.source, "source", "s", "", "source address")
	p.BoolVarP(&f.ip4, "ipv4", "4", false, "force IPv4")
	p.BoolVarP(&f.ip6, "ipv6", "6", false, "force IPv6")
	p.CountVarP(&f.verbose, "verbose", "v", "increase verbosity")
	p.BoolVarP(&f.quiet, "quiet", "q", false, "errors only")

	p.Int64Var(&f.connectTimeout, "connect-timeout", 0, "connect timeout, milliseconds")
	p.Int64Var(&f.acceptTimeout, "accept-timeout", 0, "accept timeout, milliseconds")
	p.Int64Var(&f.idleTimeout, "idle-timeout", 0, "idle timeout, milliseconds, -1 disables")
	p.Int64VarP(&f.waitTime, "wait", "w", 0, "linger after local EOF, milliseconds")
	p.Int64VarP(&f.delay, "delay", "d", 0, "delay between outbound chunks, milliseconds")

	p.BoolVar(&f.sendOnly, "send-only", false, "only send, ignore received data")
	p.BoolVar(&f.recvOnly, "recv-only", false, "only receive, send nothing")
	p.BoolVar(&f.closeOnEOF, "close-on-eof", false, "half-close after local EOF")
	p.BoolVar(&f.crlf, "crlf", false, "convert bare LF to CRLF")
	p.BoolVar(&f.telnet, "telnet", false, "answer telnet negotiation")

	p.BoolVarP(&f.keep, "keep-open", "k", false, "keep listening after a connection completes")
	p.IntVar(&f.maxConns, "max-conns", 0, "max concurrent connection workers")
	p.BoolVar(&f.broker, "broker", false, "relay bytes between all clients")
	p.BoolVar(&f.chat, "chat", false, "line chat with nicknames between all clients")
	p.IntVar(&f.maxClients, "max-clients", 0, "relay admission ceiling")
	p.IntVar(&f.nickLen, "chat-max-nickname-len", 0, "chat nickname length cap")
	p.IntVar(&f.msgLen, "chat-max-message-len", 0, "chat message length cap")

	p.StringVarP(&f.execProg, "exec", "e", "", "bridge the peer to the given program")
	p.StringVarP(&f.execShell, "sh-exec", "c", "", "bridge the peer to a shell command")
	p.StringSliceVar(&f.allow, "allow", nil, "allow rule (ip, cidr or hostname)")
	p.StringSliceVar(&f.allowIP, "allow-ip", nil, "allow rule, addresses only")
	p.StringSliceVar(&f.deny, "deny", nil, "deny rule (ip, cidr or hostname)")
	p.StringSliceVar(&f.denyIP, "deny-ip", nil, "deny rule, addresses only")

	p.BoolVar(&f.ssl, "ssl", false, "wrap the connection in tls (dtls on udp)")
	p.StringVar(&f.sslCert, "ssl-cert", "", "certificate file, pem")
	p.StringVar(&f.sslKey, "ssl-key", "", "private key file, pem")
	p.BoolVar(&f.sslVerify, "ssl-verify", false, "require and verify the peer certificate")
	p.StringVar(&f.sslTrust, "ssl-trustfile", "", "trusted CA bundle")
	p.StringVar(&f.sslCRL, "ssl-crl", "", "revocation list file")
	p.StringSliceVar(&f.sslCiphers, "ssl-ciphers", nil, "restrict cipher suites")
	p.StringVar(&f.sslServerName, "ssl-servername", "", "SNI name")
	p.StringSliceVar(&f.sslALPN, "ssl-alpn", nil, "ALPN protocol list")

	p.StringVar(&f.proxyAddr, "proxy", "", "proxy host:port")
	p.StringVar(&f.proxyType, "proxy-type", "", "proxy protocol: http, socks4, socks5")
	p.StringVar(&f.proxyAuth, "proxy-auth", "", "proxy credentials user:pass")
	p.StringVar(&f.proxyDNS, "proxy-dns", "", "proxy name resolution: none, local, remote, both")

	p.StringVar(&f.hexDump, "hex-dump", "", "hex dump traffic to the given file, - for stderr")
	p.StringVarP(&f.outputFile, "output", "o", "", "log received bytes to the given file")
	p.BoolVar(&f.appendOut, "append", false, "append to the output file")

	p.BoolVar(&f.allowDangerous, "allow-dangerous", false, "permit exec on a listener without an allow list")
	p.BoolVar(&f.requireAllow, "require-allow-with-exec", false, "refuse exec without an allow list")
	p.StringVar(&f.dropUser, "user", "", "drop privileges to this account after bind")
	p.BoolVarP(&f.zeroIO, "zero", "z", false, "probe the target without transferring data")
	p.BoolVar(&f.noDNS, "nodns", false, "numeric addresses only")

	var code int

	cmd.RunE = func(cmd *spfcbr.Command, args []string) error {
		fc, err := loadFileConfig(cmd, f.config)
		if err != nil {
			code = libcfg.ExitConfig
			return err
		}

		fc.apply(&f)

		cfg, err := buildConfig(&f, args)
		if err != nil {
			code = libcfg.ExitConfig
			return err
		}

		log := newLogger(&f)

		ctx, cnl := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cnl()

		if e := execute(ctx, cfg, log); e != nil {
			code = libcfg.ExitCode(e)
			return e
		}

		return nil
	}

	if e := cmd.Execute(); e != nil {
		fmt.Fprintln(os.Stderr, color.RedString("zigcat: %s", e.Error()))

		if code == 0 {
			code = libcfg.ExitConfig
		}
	}

	return code
}

// newLogger maps the verbosity flags onto the shared logger.
func newLogger(f *flags) liblog.FuncLog {
	l := liblog.New(context.Background())

	switch {
	case f.quiet:
		l.SetLevel(loglvl.ErrorLevel)
	case f.verbose >= 2:
		l.SetLevel(loglvl.DebugLevel)
	case f.verbose == 1:
		l.SetLevel(loglvl.InfoLevel)
	default:
		l.SetLevel(loglvl.WarnLevel)
	}

	return func() liblog.Logger {
		return l
	}
}

// buildConfig folds the flag set and the positional host/port into the
// runtime configuration record.
func buildConfig(f *flags, args []string) (*libcfg.Config, error) {
	c := &libcfg.Config{}

	switch {
	case len(f.unix) > 0:
		c.Transport = libtpt.Unix
	case f.dtls:
		c.Transport = libtpt.DTLS
	case f.udp:
		c.Transport = libtpt.UDP
	case f.sctp:
		c.Transport = libtpt.SCTP
	case f.transport.IsValid():
		// transport selected by the settings file
		c.Transport = f.transport
	default:
		c.Transport = libtpt.TCP
	}

	if f.listen {
		c.Mode = libcfg.ModeListen
	} else {
		c.Mode = libcfg.ModeConnect
	}

	var host string
	var port int

	if len(args) > 0 {
		host = args[0]
	}

	if len(args) > 1 {
		v, e := strconv.Atoi(args[1])
		if e != nil {
			return nil, fmt.Errorf("invalid port %q", args[1])
		}
		port = v
	} else if len(args) == 1 && f.listen {
		// a single positional in listen mode is the port
		if v, e := strconv.Atoi(args[0]); e == nil {
			host, port = "", v
		}
	}

	if len(host) == 0 {
		host = f.host
	}

	ms := func(v int64) libdur.Duration {
		return libdur.Duration(time.Duration(v) * time.Millisecond)
	}

	c.Server.Transport = c.Transport
	c.Server.Address = host
	c.Server.Port = pickPort(port, f.port)
	c.Server.Path = f.unix
	c.Server.IP4Only = f.ip4
	c.Server.IP6Only = f.ip6
	c.Server.KeepListening = f.keep || f.broker || f.chat
	c.Server.MaxConns = f.maxConns
	c.Server.AcceptTimeout = ms(f.acceptTimeout)

	c.Client.Transport = c.Transport
	c.Client.Host = host
	c.Client.Port = port
	c.Client.Path = f.unix
	c.Client.SourceHost = f.source
	c.Client.SourcePort = f.port
	c.Client.IP4Only = f.ip4
	c.Client.IP6Only = f.ip6
	c.Client.ConnectTimeout = ms(f.connectTimeout)

	c.Datagram.Address = host
	c.Datagram.Port = pickPort(port, f.port)
	c.Datagram.IP4Only = f.ip4
	c.Datagram.IP6Only = f.ip6
	c.Datagram.KeepListening = f.keep
	c.Datagram.RecvOnly = f.recvOnly
	c.Datagram.IdleTimeout = ms(f.idleTimeout)

	c.Transfer.SendOnly = f.sendOnly
	c.Transfer.RecvOnly = f.recvOnly
	c.Transfer.CloseOnEOF = f.closeOnEOF
	c.Transfer.CRLF = f.crlf
	c.Transfer.Delay = ms(f.delay)
	c.Transfer.WaitTime = ms(f.waitTime)
	c.Transfer.IdleTimeout = ms(f.idleTimeout)
	c.Transfer.Transport = c.Transport

	c.Telnet = f.telnet
	c.ZeroIO = f.zeroIO
	c.NoDNS = f.noDNS

	c.Broker = f.broker
	c.Chat = f.chat

	if f.chat {
		c.Relay.Mode = librly.ModeChat
	}
	c.Relay.MaxClients = f.maxClients
	c.Relay.MaxNickLen = libsiz.Size(f.nickLen)
	c.Relay.MaxMsgLen = libsiz.Size(f.msgLen)
	c.Relay.IdleTimeout = ms(f.idleTimeout)

	if len(f.execProg) > 0 || len(f.execShell) > 0 {
		b := defaultBridge()
		b.Shell = f.execShell

		if len(f.execProg) > 0 {
			parts := splitCommand(f.execProg)
			b.Path = parts[0]
			b.Args = parts[1:]
		}

		b.IdleTimeout = ms(f.idleTimeout)
		b.ConnTimeout = ms(f.connectTimeout)
		c.Exec = &b
	}

	c.TLS = f.ssl
	c.Secure.CertFile = f.sslCert
	c.Secure.KeyFile = f.sslKey
	c.Secure.Verify = f.sslVerify
	c.Secure.TrustFile = f.sslTrust
	c.Secure.CRLFile = f.sslCRL
	c.Secure.Ciphers = f.sslCiphers
	c.Secure.ServerName = f.sslServerName
	c.Secure.ALPN = f.sslALPN

	if len(f.proxyAddr) > 0 {
		k, e := libpxy.ParseType(f.proxyType)
		if e != nil {
			return nil, e
		}

		d, e := libpxy.ParseDNSMode(f.proxyDNS)
		if e != nil {
			return nil, e
		}

		u, pw := splitAuth(f.proxyAuth)

		if f.noDNS {
			d = libpxy.DNSNone
		}

		c.Proxy = &libpxy.Config{
			Address:        f.proxyAddr,
			Kind:           k,
			Username:       u,
			Password:       pw,
			DNS:            d,
			ConnectTimeout: ms(f.connectTimeout),
		}
	}

	c.Allow = append(f.allow, f.allowIP...)
	c.Deny = append(f.deny, f.denyIP...)
	c.AllowDangerous = f.allowDangerous
	c.RequireAllowWithExec = f.requireAllow
	c.DropUser = f.dropUser

	c.HexDump = len(f.hexDump) > 0
	c.HexDumpFile = f.hexDump
	c.OutputFile = f.outputFile
	c.Append = f.appendOut

	if e := c.Validate(); e != nil {
		return nil, e
	}

	return c, nil
}

func pickPort(positional, flag int) int {
	if positional > 0 {
		return positional
	}

	return flag
}

func splitAuth(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}

	return s, ""
}
