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

	liberr "github.com/nabbar/golib/errors"
)

// SOCKS4 wire constants.
const (
	socks4Version = 0x04

	socks4Granted       = 90
	socks4Rejected      = 91
	socks4IdentRequired = 92
	socks4IdentMismatch = 93
)

// connectSocks4 drives the SOCKS4 request. The protocol is IPv4 only, so
// the target is resolved locally whatever the DNS mode.
func (o *cli) connectSocks4(c net.Conn, host string, port uint16) (net.Conn, liberr.Error) {
	a, err := o.resolveLocal(context.Background(), host)
	if err != nil {
		return nil, err
	}

	if !a.Is4() {
		return nil, ErrorSocks4NoIPv4.Error(nil)
	}

	v := a.As4()

	req := []byte{socks4Version, cmdConnect}
	req = binary.BigEndian.AppendUint16(req, port)
	req = append(req, v[:]...)
	req = append(req, o.c.Username...)
	req = append(req, 0x00)

	if _, e := c.Write(req); e != nil {
		return nil, ErrorProxyConnect.Error(e)
	}

	// fixed 8-byte reply: version, code, port, address
	r := make([]byte, 8)
	if e := o.recvFull(c, r); e != nil {
		return nil, e
	}

	switch r[1] {
	case socks4Granted:
		return c, nil
	case socks4Rejected:
		return nil, ErrorSocks4Rejected.Error(nil)
	case socks4IdentRequired:
		return nil, ErrorSocks4IdentRequired.Error(nil)
	case socks4IdentMismatch:
		return nil, ErrorSocks4IdentMismatch.Error(nil)
	}

	return nil, ErrorProxyResponse.Error(nil)
}
