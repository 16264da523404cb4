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

import (
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

// CheckPolicy gates exec exposure on a listener. Handing a shell to
// arbitrary peers is refused unless the operator restricted who may connect
// or explicitly accepted the risk. The warning is emitted in every case
// where exec ends up allowed on a listener.
func CheckPolicy(serverMode, hasAllowList, allowDangerous bool, log liblog.FuncLog) liberr.Error {
	if !serverMode {
		return nil
	}

	warn := func(msg string) {
		if log == nil {
			return
		} else if l := log(); l == nil {
			return
		} else {
			l.Entry(loglvl.WarnLevel, msg).Log()
		}
	}

	if hasAllowList {
		warn("exec enabled on a listener: peers matching the allow list gain command access")
		return nil
	}

	if allowDangerous {
		warn("exec enabled on a listener WITHOUT an allow list: any peer gains command access")
		return nil
	}

	return ErrorPolicyAllowRequired.Error(nil)
}
