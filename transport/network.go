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

package transport

// Network returns the string expected by the net package dial and listen
// functions, narrowed by family when one of ip4only / ip6only is set.
// Both flags set at once is a configuration error caught upstream; the
// ip4 flag wins here. Unix and SCTP ignore the family flags.
func (t Transport) Network(ip4only, ip6only bool) string {
	switch t {
	case TCP:
		if ip4only {
			return "tcp4"
		} else if ip6only {
			return "tcp6"
		}
		return "tcp"
	case UDP, DTLS:
		if ip4only {
			return "udp4"
		} else if ip6only {
			return "udp6"
		}
		return "udp"
	case SCTP:
		return "sctp"
	case Unix:
		return "unix"
	}

	return ""
}
