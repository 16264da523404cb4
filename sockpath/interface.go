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

// Package sockpath owns the lifetime of a Unix socket file on the server
// side: path validation, reclaim of a stale file left by a dead process,
// the umask clamp around bind, the post-listen permission audit, and the
// best-effort unlink on shutdown.
//
// Reclaim probes the existing file with a throwaway connect instead of
// stat-then-unlink, which removes the race between the check and the use:
// a refused connect proves the file is a dead socket at the moment the
// kernel answers, not at some earlier stat.
package sockpath

import (
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
)

// Lifecycle drives a socket path from validation to removal.
type Lifecycle interface {
	// Path returns the validated socket path.
	Path() string

	// Validate checks the path against the platform rules: non-empty,
	// within the kernel length limit, no NUL byte, no control characters
	// except tab, and no abstract-namespace address.
	Validate() liberr.Error

	// Prepare ensures the parent directory exists and reclaims a stale
	// socket file when one is found. It must run before bind.
	Prepare() liberr.Error

	// ClampUmask narrows the process umask to 0o077 and returns the
	// function restoring the previous value. Call it immediately around
	// bind so the socket file is created private.
	ClampUmask() func()

	// Audit verifies the freshly bound socket file is owned by this
	// process and carries no group/world write bits, logging a warning
	// otherwise. Never fails the server start.
	Audit()

	// Cleanup removes the socket file best-effort on shutdown.
	Cleanup()
}

// New returns a lifecycle for the given socket path.
func New(path string, log liblog.FuncLog) Lifecycle {
	return &pth{
		p: path,
		l: log,
	}
}
