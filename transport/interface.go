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

// Package transport exposes the transport selector used by the whole tool:
// stream or datagram, IP or local, clear or DTLS-wrapped.
//
// The type behaves like the other scalar configuration types of the project:
// it parses from a string, formats back to the same string, encodes to
// JSON/text, and plugs into viper through a decoder hook.
package transport

type Transport uint8

const (
	// Empty is the zero value and never a valid configured transport.
	Empty Transport = iota
	// TCP is a stream connection over IPv4/IPv6.
	TCP
	// UDP is a datagram flow over IPv4/IPv6.
	UDP
	// SCTP is a stream connection over the SCTP protocol.
	SCTP
	// Unix is a stream connection over a filesystem socket path.
	Unix
	// DTLS is a datagram flow wrapped into a DTLS session.
	DTLS
)

// List returns all valid transports, excluding Empty.
func List() []Transport {
	return []Transport{
		TCP,
		UDP,
		SCTP,
		Unix,
		DTLS,
	}
}

// IsValid returns true if the value is one of the declared transports.
func (t Transport) IsValid() bool {
	switch t {
	case TCP, UDP, SCTP, Unix, DTLS:
		return true
	}

	return false
}

// IsDatagram returns true for message-oriented transports.
func (t Transport) IsDatagram() bool {
	switch t {
	case UDP, DTLS:
		return true
	}

	return false
}

// IsStream returns true for byte-stream transports.
func (t Transport) IsStream() bool {
	switch t {
	case TCP, SCTP, Unix:
		return true
	}

	return false
}

// IsLocal returns true when the transport does not cross the network stack.
func (t Transport) IsLocal() bool {
	return t == Unix
}
