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

package telnet

import (
	"bytes"
	"sync"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

// codec states while scanning the inbound stream.
const (
	stData = iota
	stIAC
	stCmd
	stSB
	stSBIAC
)

type tlc struct {
	libcnx.Connection

	s bool // server side
	l liblog.FuncLog

	m  sync.Mutex
	st int
	cm byte // pending command byte while in stCmd
}

func (o *tlc) logDebug(msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(loglvl.DebugLevel, msg, arg...).Log()
	}
}

func (o *tlc) Type() libcnx.Type {
	return libcnx.TypeTelnet
}

func (o *tlc) Negotiate() error {
	if !o.s {
		return nil
	}

	_, e := o.Connection.Write([]byte{
		cmdIAC, cmdWill, optEcho,
		cmdIAC, cmdWill, optSuppress,
	})

	return e
}

// Read strips IAC sequences from the inbound bytes, answering negotiation
// inline. It loops until at least one user byte is available or the
// underlying read fails, so a burst of pure negotiation never surfaces as a
// zero-byte read.
func (o *tlc) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))

	for {
		n, e := o.Connection.Read(buf)

		if n > 0 {
			out, rsp := o.decode(buf[:n], p[:0])

			if len(rsp) > 0 {
				if _, w := o.Connection.Write(rsp); w != nil {
					return len(out), w
				}
			}

			if len(out) > 0 {
				return len(out), e
			}
		}

		if e != nil {
			return 0, e
		}
	}
}

// Write escapes data 0xFF bytes as IAC IAC.
func (o *tlc) Write(p []byte) (int, error) {
	if !bytes.Contains(p, []byte{cmdIAC}) {
		return o.Connection.Write(p)
	}

	buf := make([]byte, 0, len(p)+8)

	for _, b := range p {
		if b == cmdIAC {
			buf = append(buf, cmdIAC, cmdIAC)
		} else {
			buf = append(buf, b)
		}
	}

	if _, e := o.Connection.Write(buf); e != nil {
		return 0, e
	}

	return len(p), nil
}

// decode scans in, appending user bytes to out and negotiation answers to
// the returned response slice. The codec state survives across calls so
// sequences split over reads are handled.
func (o *tlc) decode(in []byte, out []byte) ([]byte, []byte) {
	o.m.Lock()
	defer o.m.Unlock()

	var rsp []byte

	for _, b := range in {
		switch o.st {
		case stData:
			if b == cmdIAC {
				o.st = stIAC
			} else {
				out = append(out, b)
			}

		case stIAC:
			switch b {
			case cmdIAC:
				// escaped data byte
				out = append(out, b)
				o.st = stData
			case cmdWill, cmdWont, cmdDo, cmdDont:
				o.cm = b
				o.st = stCmd
			case cmdSB:
				o.st = stSB
			default:
				// simple command, no option byte
				o.st = stData
			}

		case stCmd:
			rsp = append(rsp, o.answer(o.cm, b)...)
			o.st = stData

		case stSB:
			if b == cmdIAC {
				o.st = stSBIAC
			}

		case stSBIAC:
			if b == cmdSE {
				o.st = stData
			} else {
				o.st = stSB
			}
		}
	}

	return out, rsp
}

// answer builds the reply for one negotiation command. The server agrees to
// ECHO and SUPPRESS-GO-AHEAD requests, everything else is refused.
func (o *tlc) answer(cmd, opt byte) []byte {
	o.logDebug("telnet negotiation command %d option %d", cmd, opt)

	agree := o.s && (opt == optEcho || opt == optSuppress)

	switch cmd {
	case cmdDo:
		if agree {
			return []byte{cmdIAC, cmdWill, opt}
		}
		return []byte{cmdIAC, cmdWont, opt}

	case cmdDont:
		return []byte{cmdIAC, cmdWont, opt}

	case cmdWill:
		if agree {
			return []byte{cmdIAC, cmdDo, opt}
		}
		return []byte{cmdIAC, cmdDont, opt}

	case cmdWont:
		return []byte{cmdIAC, cmdDont, opt}
	}

	return nil
}
