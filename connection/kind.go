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

package connection

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Kind classifies a transport error into the categories the engines react
// to. Anything unrecognized maps to KindProtocol.
type Kind uint8

const (
	KindNone Kind = iota
	KindWouldBlock
	KindInterrupted
	KindPeerReset
	KindTimeout
	KindProtocol
	KindClosed
)

// KindOf classifies err. A nil error returns KindNone; io.EOF returns
// KindClosed since a zero-byte read already signals the orderly shutdown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe), errors.Is(err, syscall.EPIPE):
		return KindClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, syscall.ECONNRESET):
		return KindPeerReset
	case errors.Is(err, syscall.EINTR):
		return KindInterrupted
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK):
		return KindWouldBlock
	}

	var n net.Error
	if errors.As(err, &n) && n.Timeout() {
		return KindTimeout
	}

	return KindProtocol
}

// IsRetryable reports whether the engines may retry the operation on the
// same connection after this error.
func (k Kind) IsRetryable() bool {
	switch k {
	case KindWouldBlock, KindInterrupted, KindTimeout:
		return true
	}

	return false
}
