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
	"errors"
	"io"
	"time"
)

// errReadTimeout signals that no local input arrived within the turn.
var errReadTimeout = errors.New("local read turn expired")

type chunk struct {
	p []byte
	e error
}

// chanReader decouples the blocking local input from the pump loop so the
// shutdown flag and the idle deadline stay responsive. The feeding
// goroutine ends at EOF or on the first error; stop only abandons it, since
// a blocked read on a pipe or terminal cannot be interrupted portably.
type chanReader struct {
	c chan chunk
	q chan struct{}
}

func newChanReader(r io.Reader, size int) *chanReader {
	o := &chanReader{
		c: make(chan chunk, 1),
		q: make(chan struct{}),
	}

	go func() {
		defer close(o.c)

		for {
			b := make([]byte, size)
			n, e := r.Read(b)

			var k chunk
			if n > 0 {
				k.p = b[:n]
			}
			k.e = e

			select {
			case o.c <- k:
			case <-o.q:
				return
			}

			if e != nil {
				return
			}
		}
	}()

	return o
}

// read waits up to d for the next chunk. A closed channel reports io.EOF.
func (o *chanReader) read(d time.Duration) ([]byte, error) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case k, ok := <-o.c:
		if !ok {
			return nil, io.EOF
		}
		return k.p, k.e

	case <-t.C:
		return nil, errReadTimeout
	}
}

func (o *chanReader) stop() {
	close(o.q)
}
