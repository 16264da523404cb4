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
	"bytes"
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"

	liberr "github.com/nabbar/golib/errors"
)

// headerBufferMax bounds the CONNECT response status line plus headers.
const headerBufferMax = 4096

// connectHTTP drives the CONNECT handshake. The response is accumulated
// byte-wise across reads until the blank line terminator appears, so a
// reply fragmented by TCP is reassembled correctly.
func (o *cli) connectHTTP(c net.Conn, host string, port uint16) (net.Conn, liberr.Error) {
	t := net.JoinHostPort(host, strconv.Itoa(int(port)))

	var b strings.Builder
	fmt.Fprintf(&b, "CONNECT %s HTTP/1.1\r\n", t)
	fmt.Fprintf(&b, "Host: %s\r\n", t)

	if len(o.c.Username) > 0 {
		cred := base64.StdEncoding.EncodeToString([]byte(o.c.Username + ":" + o.c.Password))
		fmt.Fprintf(&b, "Proxy-Authorization: Basic %s\r\n", cred)
	}

	b.WriteString("\r\n")

	if _, e := c.Write([]byte(b.String())); e != nil {
		return nil, ErrorProxyConnect.Error(e)
	}

	var (
		buf = make([]byte, headerBufferMax)
		end = []byte("\r\n\r\n")
		got = 0
	)

	for {
		if got >= len(buf) {
			return nil, ErrorHTTPHeaderTooLarge.Error(nil)
		}

		n, err := o.recvStep(c, buf[got:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrorProxyResponse.Error(nil)
		}

		got += n

		if i := bytes.Index(buf[:got], end); i >= 0 {
			if e := checkConnectStatus(buf[:i]); e != nil {
				return nil, e
			}

			// bytes past the blank line already belong to the tunnel
			if rem := buf[i+len(end) : got]; len(rem) > 0 {
				return &replayConn{Conn: c, r: append([]byte{}, rem...)}, nil
			}

			return c, nil
		}
	}
}

// checkConnectStatus parses the status line and requires HTTP/1.x 200.
func checkConnectStatus(head []byte) liberr.Error {
	line := head

	if i := bytes.IndexByte(line, '\r'); i >= 0 {
		line = line[:i]
	}

	f := strings.Fields(string(line))

	if len(f) < 2 || !strings.HasPrefix(f[0], "HTTP/1.") {
		return ErrorProxyResponse.Error(nil)
	}

	if f[1] != "200" {
		return ErrorHTTPStatus.Errorf(f[1])
	}

	return nil
}

// replayConn serves buffered bytes before falling back to the socket.
type replayConn struct {
	net.Conn
	r []byte
}

func (o *replayConn) Read(p []byte) (int, error) {
	if len(o.r) > 0 {
		n := copy(p, o.r)
		o.r = o.r[n:]
		return n, nil
	}

	return o.Conn.Read(p)
}
