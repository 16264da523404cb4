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

package secure

import "github.com/nabbar/golib/errors"

const (
	ErrorCertificateLoad errors.CodeError = iota + errors.MinAvailable + 500
	ErrorCertificateRequired
	ErrorTrustLoad
	ErrorCRLLoad
	ErrorCRLRevoked
	ErrorHandshake
	ErrorVerify
	ErrorMTURange
	ErrorNotStream
	ErrorNotDatagram
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorCertificateLoad)
	errors.RegisterIdFctMessage(ErrorCertificateLoad, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorCertificateLoad:
		return "cannot load certificate pair"
	case ErrorCertificateRequired:
		return "server mode requires a certificate pair"
	case ErrorTrustLoad:
		return "cannot load trust file"
	case ErrorCRLLoad:
		return "cannot load revocation list"
	case ErrorCRLRevoked:
		return "peer certificate is revoked"
	case ErrorHandshake:
		return "handshake failed"
	case ErrorVerify:
		return "peer verification failed"
	case ErrorMTURange:
		return "dtls mtu out of range"
	case ErrorNotStream:
		return "tls requires a stream transport"
	case ErrorNotDatagram:
		return "dtls requires a datagram transport"
	}

	return ""
}
