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

package config

import (
	libacc "github.com/whit3rabbit/zigcat/access"
	libbrg "github.com/whit3rabbit/zigcat/bridge"

	liberr "github.com/nabbar/golib/errors"
)

// Process exit codes, stable across releases.
const (
	ExitOK       = 0
	ExitConfig   = 1
	ExitNetwork  = 2
	ExitSecurity = 3
	ExitChild    = 4
)

// ExitCode classifies a failure into the documented process exit codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	e, ok := err.(liberr.Error)
	if !ok {
		return ExitNetwork
	}

	for _, c := range append(e.GetParentCode(), e.GetCode()) {
		switch c {
		case ErrorValidatorError, ErrorModeConflict, ErrorFamilyConflict, ErrorTargetMissing, ErrorRuleFileRead:
			return ExitConfig

		case libacc.ErrorPeerDenied,
			libbrg.ErrorPolicyAllowRequired,
			libbrg.ErrorPolicyDangerous:
			return ExitSecurity

		case libbrg.ErrorSpawnFailed,
			libbrg.ErrorChildWait,
			libbrg.ErrorExecTimeout,
			libbrg.ErrorIdleTimeout,
			libbrg.ErrorConnTimeout:
			return ExitChild
		}
	}

	return ExitNetwork
}
