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

package sockpath

import "github.com/nabbar/golib/errors"

const (
	ErrorPathEmpty errors.CodeError = iota + errors.MinAvailable + 600
	ErrorPathTooLong
	ErrorPathInvalidChar
	ErrorPathAbstract
	ErrorPathParentMissing
	ErrorAddressInUse
	ErrorPermissionDenied
	ErrorProbeFailed
	ErrorReclaimFailed
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorPathEmpty)
	errors.RegisterIdFctMessage(ErrorPathEmpty, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorPathEmpty:
		return "socket path is empty"
	case ErrorPathTooLong:
		return "socket path exceeds the platform limit"
	case ErrorPathInvalidChar:
		return "socket path contains forbidden characters"
	case ErrorPathAbstract:
		return "abstract namespace sockets are not allowed"
	case ErrorPathParentMissing:
		return "cannot create the socket parent directory"
	case ErrorAddressInUse:
		return "socket path is in use by a live listener"
	case ErrorPermissionDenied:
		return "permission denied probing the socket path"
	case ErrorProbeFailed:
		return "cannot probe the existing socket file"
	case ErrorReclaimFailed:
		return "cannot remove the stale socket file"
	}

	return ""
}
