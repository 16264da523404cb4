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

// Package telnet wraps a connection with the telnet in-band protocol:
// IAC command sequences are stripped from the inbound stream and answered,
// and outbound 0xFF data bytes are escaped. The application only ever sees
// user bytes.
//
// The negotiation stance is minimal: the server side offers ECHO and
// SUPPRESS-GO-AHEAD once at startup and agrees when the peer asks for those
// two options; everything else is refused. The client side refuses every
// option. Subnegotiation payloads are consumed and dropped.
package telnet

import (
	libcnx "github.com/whit3rabbit/zigcat/connection"

	liblog "github.com/nabbar/golib/logger"
)

// Telnet command and option bytes.
const (
	cmdSE   = 240
	cmdSB   = 250
	cmdWill = 251
	cmdWont = 252
	cmdDo   = 253
	cmdDont = 254
	cmdIAC  = 255

	optEcho     = 1
	optSuppress = 3
)

// New wraps the given connection with the telnet codec. When server is
// true, Negotiate sends the initial ECHO + SUPPRESS-GO-AHEAD offer.
func New(c libcnx.Connection, server bool, log liblog.FuncLog) Conn {
	return &tlc{
		Connection: c,
		s:          server,
		l:          log,
	}
}

// Conn is a telnet-wrapped connection. It behaves as a Connection carrying
// only user bytes; the codec state lives inside.
type Conn interface {
	libcnx.Connection

	// Negotiate sends the initial server-side option offer. It is a no-op
	// on the client side.
	Negotiate() error
}
