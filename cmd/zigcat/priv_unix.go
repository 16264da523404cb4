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

package main

import (
	"os/user"
	"strconv"

	libcfg "github.com/whit3rabbit/zigcat/config"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	"golang.org/x/sys/unix"
)

// dropPrivileges switches to the given account after the listen sockets
// are bound. The group change must precede the user change, or the process
// no longer has the right to change its group.
func dropPrivileges(name string, log liblog.FuncLog) liberr.Error {
	if len(name) == 0 {
		return nil
	}

	u, e := user.Lookup(name)
	if e != nil {
		return libcfg.ErrorValidatorError.Error(e)
	}

	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	if e = unix.Setgid(gid); e != nil {
		return libcfg.ErrorValidatorError.Error(e)
	}

	if e = unix.Setuid(uid); e != nil {
		return libcfg.ErrorValidatorError.Error(e)
	}

	if l := log(); l != nil {
		l.Entry(loglvl.InfoLevel, "privileges dropped to %s (uid %d, gid %d)", name, uid, gid).Log()
	}

	return nil
}
