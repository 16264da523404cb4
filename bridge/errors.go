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

package bridge

import "github.com/nabbar/golib/errors"

const (
	ErrorParamsMissing errors.CodeError = iota + errors.MinAvailable + 800
	ErrorFlowThresholds
	ErrorPolicyAllowRequired
	ErrorPolicyDangerous
	ErrorSpawnFailed
	ErrorPipeFailed
	ErrorExecTimeout
	ErrorIdleTimeout
	ErrorConnTimeout
	ErrorChildWait
	ErrorSocketFailed
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorParamsMissing)
	errors.RegisterIdFctMessage(ErrorParamsMissing, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorParamsMissing:
		return "no program or shell command configured"
	case ErrorFlowThresholds:
		return "flow thresholds must satisfy 0 < resume < pause <= 1"
	case ErrorPolicyAllowRequired:
		return "exec on a listener requires an allow list"
	case ErrorPolicyDangerous:
		return "exec refused without explicit override"
	case ErrorSpawnFailed:
		return "cannot spawn the child process"
	case ErrorPipeFailed:
		return "cannot create a child pipe"
	case ErrorExecTimeout:
		return "child execution time exceeded"
	case ErrorIdleTimeout:
		return "exec session idle timeout"
	case ErrorConnTimeout:
		return "no traffic before the connection timeout"
	case ErrorChildWait:
		return "cannot reap the child process"
	case ErrorSocketFailed:
		return "socket failed during the exec session"
	}

	return ""
}
