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

package transfer

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// NewOutputLogger opens the output log sink. With app set, bytes are added
// to an existing file instead of truncating it.
func NewOutputLogger(path string, app bool) (io.WriteCloser, error) {
	f := os.O_CREATE | os.O_WRONLY
	if app {
		f |= os.O_APPEND
	} else {
		f |= os.O_TRUNC
	}

	return os.OpenFile(path, f, 0o644)
}

// NewHexDump returns a sink formatting every byte into canonical hex rows:
// an 8-digit offset, sixteen hex bytes in two groups, and the printable
// ASCII column. The offset is continuous across writes.
func NewHexDump(w io.Writer) io.WriteCloser {
	return &hxd{
		w: w,
	}
}

type hxd struct {
	m sync.Mutex
	w io.Writer
	o uint64 // running offset
	b []byte // partial row carried between writes
}

func (o *hxd) Write(p []byte) (int, error) {
	o.m.Lock()
	defer o.m.Unlock()

	o.b = append(o.b, p...)

	for len(o.b) >= 16 {
		if e := o.row(o.b[:16]); e != nil {
			return 0, e
		}
		o.b = o.b[16:]
	}

	return len(p), nil
}

// Close flushes the trailing partial row.
func (o *hxd) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	if len(o.b) > 0 {
		e := o.row(o.b)
		o.b = nil
		return e
	}

	return nil
}

func (o *hxd) row(p []byte) error {
	hex := make([]byte, 0, 49)

	for i := 0; i < 16; i++ {
		if i == 8 {
			hex = append(hex, ' ')
		}
		if i < len(p) {
			hex = append(hex, []byte(fmt.Sprintf("%02x ", p[i]))...)
		} else {
			hex = append(hex, "   "...)
		}
	}

	asc := make([]byte, 0, 16)
	for _, b := range p {
		if b >= 0x20 && b < 0x7f {
			asc = append(asc, b)
		} else {
			asc = append(asc, '.')
		}
	}

	_, e := fmt.Fprintf(o.w, "%08x  %s |%s|\n", o.o, hex, asc)
	o.o += uint64(len(p))

	return e
}
