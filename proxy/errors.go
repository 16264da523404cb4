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

import "github.com/nabbar/golib/errors"

const (
	ErrorParamsInvalid errors.CodeError = iota + errors.MinAvailable + 400
	ErrorProxyConnect
	ErrorProxyTimeout
	ErrorProxyResponse
	ErrorAuthFailed
	ErrorAuthRequired
	ErrorHTTPStatus
	ErrorHTTPHeaderTooLarge
	ErrorSocks4Rejected
	ErrorSocks4IdentRequired
	ErrorSocks4IdentMismatch
	ErrorSocks4NoIPv4
	ErrorSocks5GeneralFailure
	ErrorSocks5NotAllowed
	ErrorSocks5NetworkUnreachable
	ErrorSocks5HostUnreachable
	ErrorSocks5ConnectionRefused
	ErrorSocks5TTLExpired
	ErrorSocks5CommandNotSupported
	ErrorSocks5AddressNotSupported
	ErrorSocks5Reply
	ErrorSocks5Method
	ErrorTargetInvalid
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorParamsInvalid)
	errors.RegisterIdFctMessage(ErrorParamsInvalid, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorParamsInvalid:
		return "invalid proxy parameters"
	case ErrorProxyConnect:
		return "cannot connect to proxy"
	case ErrorProxyTimeout:
		return "proxy negotiation timed out"
	case ErrorProxyResponse:
		return "invalid proxy response"
	case ErrorAuthFailed:
		return "proxy authentication failed"
	case ErrorAuthRequired:
		return "proxy requires authentication"
	case ErrorHTTPStatus:
		return "http proxy refused the tunnel with status '%s'"
	case ErrorHTTPHeaderTooLarge:
		return "http proxy response headers exceed the buffer"
	case ErrorSocks4Rejected:
		return "socks4 request rejected or failed"
	case ErrorSocks4IdentRequired:
		return "socks4 server requires identd"
	case ErrorSocks4IdentMismatch:
		return "socks4 identd user-id mismatch"
	case ErrorSocks4NoIPv4:
		return "socks4 target has no IPv4 address"
	case ErrorSocks5GeneralFailure:
		return "socks5 general server failure"
	case ErrorSocks5NotAllowed:
		return "socks5 connection not allowed by ruleset"
	case ErrorSocks5NetworkUnreachable:
		return "socks5 network unreachable"
	case ErrorSocks5HostUnreachable:
		return "socks5 host unreachable"
	case ErrorSocks5ConnectionRefused:
		return "socks5 connection refused"
	case ErrorSocks5TTLExpired:
		return "socks5 ttl expired"
	case ErrorSocks5CommandNotSupported:
		return "socks5 command not supported"
	case ErrorSocks5AddressNotSupported:
		return "socks5 address type not supported"
	case ErrorSocks5Reply:
		return "socks5 unknown reply code"
	case ErrorSocks5Method:
		return "socks5 no acceptable authentication method"
	case ErrorTargetInvalid:
		return "invalid tunnel target"
	}

	return ""
}
