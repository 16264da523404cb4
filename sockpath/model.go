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

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

const probeTimeout = 250 * time.Millisecond

type pth struct {
	p string
	l liblog.FuncLog
}

func (o *pth) log(lvl loglvl.Level, msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(lvl, msg, arg...).Log()
	}
}

func (o *pth) Path() string {
	return o.p
}

func (o *pth) Validate() liberr.Error {
	if len(o.p) == 0 {
		return ErrorPathEmpty.Error(nil)
	}

	if len(o.p) > maxPathLen {
		return ErrorPathTooLong.Error(nil)
	}

	if strings.HasPrefix(o.p, "\x00") || strings.HasPrefix(o.p, "@") {
		return ErrorPathAbstract.Error(nil)
	}

	for _, r := range o.p {
		if r == 0 {
			return ErrorPathInvalidChar.Error(nil)
		}
		if r < 0x20 && r != '\t' {
			return ErrorPathInvalidChar.Error(nil)
		}
	}

	return nil
}

func (o *pth) Prepare() liberr.Error {
	if e := o.Validate(); e != nil {
		return e
	}

	if d := filepath.Dir(o.p); len(d) > 0 && d != "." {
		if e := os.MkdirAll(d, 0o755); e != nil {
			return ErrorPathParentMissing.Error(e)
		}
	}

	return o.reclaim()
}

// reclaim probes any existing file with a throwaway connect. A refused
// connect proves the file is a dead socket and may be removed; a successful
// connect proves a live listener owns the address.
func (o *pth) reclaim() liberr.Error {
	c, e := net.DialTimeout("unix", o.p, probeTimeout)

	if e == nil {
		_ = c.Close()
		return ErrorAddressInUse.Error(nil)
	}

	switch {
	case errors.Is(e, syscall.ECONNREFUSED):
		o.log(loglvl.InfoLevel, "removing stale socket file %s", o.p)
		if r := os.Remove(o.p); r != nil && !os.IsNotExist(r) {
			return ErrorReclaimFailed.Error(r)
		}
		return nil

	case errors.Is(e, os.ErrNotExist), errors.Is(e, syscall.ENOENT):
		return nil

	case errors.Is(e, os.ErrPermission), errors.Is(e, syscall.EACCES):
		return ErrorPermissionDenied.Error(e)
	}

	return ErrorProbeFailed.Error(e)
}

func (o *pth) Audit() {
	i, e := os.Stat(o.p)
	if e != nil {
		o.log(loglvl.WarnLevel, "cannot stat socket file %s after listen", o.p)
		return
	}

	if i.Mode().Perm()&0o022 != 0 {
		o.log(loglvl.WarnLevel, "socket file %s is group or world writable (%s)", o.p, i.Mode().Perm().String())
	}

	if !ownedByProcess(i) {
		o.log(loglvl.WarnLevel, "socket file %s is not owned by this process", o.p)
	}
}

func (o *pth) Cleanup() {
	if e := os.Remove(o.p); e != nil && !os.IsNotExist(e) {
		o.log(loglvl.WarnLevel, "cannot remove socket file %s on shutdown", o.p)
	}
}
