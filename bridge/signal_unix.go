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

//go:build !windows

package bridge

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// termGrace is how long the child gets to honor SIGTERM before SIGKILL.
const termGrace = 250 * time.Millisecond

const (
	shellPath = "/bin/sh"
	shellFlag = "-c"
)

// terminate asks the child to exit and escalates after the grace period.
func terminate(p *os.Process) {
	if p == nil {
		return
	}

	_ = p.Signal(unix.SIGTERM)

	t := time.NewTimer(termGrace)
	defer t.Stop()

	k := time.NewTicker(10 * time.Millisecond)
	defer k.Stop()

	for {
		select {
		case <-t.C:
			_ = p.Signal(unix.SIGKILL)
			return

		case <-k.C:
			// signal 0 probes liveness without delivering anything
			if p.Signal(unix.Signal(0)) != nil {
				return
			}
		}
	}
}
