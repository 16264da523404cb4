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
	"encoding/binary"
	"net"
	"net/netip"

	liberr "github.com/nabbar/golib/errors"
)

// SOCKS5 wire constants, RFC 1928 / RFC 1929.
const (
	socks5Version = 0x05

	authVersion  = 0x01
	authNone     = 0x00
	authPassword = 0x02
	authNoAccept = 0xFF

	cmdConnect = 0x01

	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04

	replySuccess = 0x00
)

// connectSocks5 drives the four negotiation stages: method selection,
// optional username/password authentication, the CONNECT request, and the
// reply whose bound-address fields are consumed exactly.
func (o *cli) connectSocks5(c net.Conn, host string, port uint16) (net.Conn, liberr.Error) {
	if e := o.socks5Methods(c); e != nil {
		return nil, e
	}

	req, e := o.socks5Request(host, port)
	if e != nil {
		return nil, e
	}

	if _, w := c.Write(req); w != nil {
		return nil, ErrorProxyConnect.Error(w)
	}

	hdr := make([]byte, 4)
	if e = o.recvFull(c, hdr); e != nil {
		return nil, e
	}

	if hdr[0] != socks5Version {
		return nil, ErrorProxyResponse.Error(nil)
	}

	if hdr[1] != replySuccess {
		return nil, socks5ReplyError(hdr[1])
	}

	// consume the bound address so only user bytes remain
	var alen int
	switch hdr[3] {
	case atypIPv4:
		alen = 4
	case atypIPv6:
		alen = 16
	case atypDomain:
		l := make([]byte, 1)
		if e = o.recvFull(c, l); e != nil {
			return nil, e
		}
		alen = int(l[0])
	default:
		return nil, ErrorProxyResponse.Error(nil)
	}

	if e = o.recvFull(c, make([]byte, alen+2)); e != nil {
		return nil, e
	}

	return c, nil
}

// socks5Methods negotiates the authentication method and runs the RFC 1929
// sub-negotiation when the server selects username/password.
func (o *cli) socks5Methods(c net.Conn) liberr.Error {
	m := []byte{socks5Version, 1, authNone}

	if len(o.c.Username) > 0 {
		m = []byte{socks5Version, 2, authNone, authPassword}
	}

	if _, e := c.Write(m); e != nil {
		return ErrorProxyConnect.Error(e)
	}

	r := make([]byte, 2)
	if e := o.recvFull(c, r); e != nil {
		return e
	}

	if r[0] != socks5Version {
		return ErrorProxyResponse.Error(nil)
	}

	switch r[1] {
	case authNone:
		return nil

	case authPassword:
		if len(o.c.Username) == 0 {
			return ErrorAuthRequired.Error(nil)
		}
		return o.socks5Auth(c)

	case authNoAccept:
		return ErrorSocks5Method.Error(nil)
	}

	return ErrorSocks5Method.Error(nil)
}

func (o *cli) socks5Auth(c net.Conn) liberr.Error {
	u, p := o.c.Username, o.c.Password

	if len(u) > 255 || len(p) > 255 {
		return ErrorParamsInvalid.Error(nil)
	}

	req := make([]byte, 0, 3+len(u)+len(p))
	req = append(req, authVersion, byte(len(u)))
	req = append(req, u...)
	req = append(req, byte(len(p)))
	req = append(req, p...)

	if _, e := c.Write(req); e != nil {
		return ErrorProxyConnect.Error(e)
	}

	r := make([]byte, 2)
	if e := o.recvFull(c, r); e != nil {
		return e
	}

	if r[0] != authVersion || r[1] != 0x00 {
		return ErrorAuthFailed.Error(nil)
	}

	return nil
}

// socks5Request builds the CONNECT request, choosing the address type from
// the DNS mode: literal addresses pass through, hostnames go as domain
// ATYP unless local resolution is requested.
func (o *cli) socks5Request(host string, port uint16) ([]byte, liberr.Error) {
	req := []byte{socks5Version, cmdConnect, 0x00}

	if a, e := netip.ParseAddr(host); e == nil {
		req = appendAddr(req, a.Unmap())
	} else {
		switch o.c.DNS {
		case DNSNone:
			return nil, ErrorTargetInvalid.Error(nil)

		case DNSLocal, DNSBoth:
			r, err := o.resolveLocal(context.Background(), host)
			if err == nil {
				req = appendAddr(req, r)
				break
			}
			if o.c.DNS == DNSLocal {
				return nil, err
			}
			fallthrough

		default: // DNSRemote, or DNSBoth after a failed local resolution
			if len(host) > 255 {
				return nil, ErrorTargetInvalid.Error(nil)
			}
			req = append(req, atypDomain, byte(len(host)))
			req = append(req, host...)
		}
	}

	req = binary.BigEndian.AppendUint16(req, port)
	return req, nil
}

func appendAddr(req []byte, a netip.Addr) []byte {
	if a.Is4() {
		v := a.As4()
		req = append(req, atypIPv4)
		return append(req, v[:]...)
	}

	v := a.As16()
	req = append(req, atypIPv6)
	return append(req, v[:]...)
}

func socks5ReplyError(code byte) liberr.Error {
	switch code {
	case 0x01:
		return ErrorSocks5GeneralFailure.Error(nil)
	case 0x02:
		return ErrorSocks5NotAllowed.Error(nil)
	case 0x03:
		return ErrorSocks5NetworkUnreachable.Error(nil)
	case 0x04:
		return ErrorSocks5HostUnreachable.Error(nil)
	case 0x05:
		return ErrorSocks5ConnectionRefused.Error(nil)
	case 0x06:
		return ErrorSocks5TTLExpired.Error(nil)
	case 0x07:
		return ErrorSocks5CommandNotSupported.Error(nil)
	case 0x08:
		return ErrorSocks5AddressNotSupported.Error(nil)
	}

	return ErrorSocks5Reply.Error(nil)
}
