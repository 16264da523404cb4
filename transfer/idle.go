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

package transfer

import (
	"time"

	libtpt "github.com/whit3rabbit/zigcat/transport"
)

// serverIdleDefault applies on the listen side when the local input is not
// a terminal: an abandoned pipe must not hold a handler forever.
const serverIdleDefault = 30 * time.Second

// EffectiveIdle resolves the read idle deadline from the single policy
// shared by every engine:
//
//   - an explicit positive user value always wins;
//   - a negative user value disables the deadline;
//   - a client connect without explicit value has no deadline;
//   - a stream server with a terminal on local input has no deadline;
//   - any other server context, datagram servers included whatever the
//     local input, defaults to 30 seconds.
//
// The returned zero duration means no deadline.
func EffectiveIdle(user time.Duration, server bool, t libtpt.Transport, tty bool) time.Duration {
	if user > 0 {
		return user
	}

	if user < 0 || !server {
		return 0
	}

	// datagram servers never have a terminal driving them
	if t.IsDatagram() {
		return serverIdleDefault
	}

	if tty {
		return 0
	}

	return serverIdleDefault
}
