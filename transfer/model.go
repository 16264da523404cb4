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
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	liberr "github.com/nabbar/golib/errors"
	libmlt "github.com/nabbar/golib/ioutils/multi"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

// turnMax is the longest a blocking read may run before the shutdown flag
// and the idle deadline are re-checked.
const turnMax = 500 * time.Millisecond

type trf struct {
	c libcnx.Connection
	i io.ReadCloser
	o io.Writer
	f Config
	l liblog.FuncLog

	m  sync.Mutex
	t  libmlt.Multi // inbound tee, lazy
	sd atomic.Bool  // shutdown requested
	bi atomic.Uint64
	bo atomic.Uint64
	la atomic.Int64 // last activity, unix nano
}

func (o *trf) log(lvl loglvl.Level, msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(lvl, msg, arg...).Log()
	}
}

func (o *trf) Shutdown() {
	o.sd.Store(true)
}

func (o *trf) AddSink(w ...io.Writer) {
	o.m.Lock()
	defer o.m.Unlock()

	if o.t == nil {
		o.t = libmlt.New()
	}

	o.t.AddWriter(w...)
}

func (o *trf) BytesIn() uint64 {
	return o.bi.Load()
}

func (o *trf) BytesOut() uint64 {
	return o.bo.Load()
}

func (o *trf) touch() {
	o.la.Store(time.Now().UnixNano())
}

func (o *trf) idleExpired(idle time.Duration) bool {
	if idle <= 0 {
		return false
	}

	return time.Since(time.Unix(0, o.la.Load())) > idle
}

func (o *trf) Run(ctx context.Context) liberr.Error {
	idle := EffectiveIdle(o.f.IdleTimeout.Time(), o.f.Server, o.f.Transport, localIsTTY(o.i))

	o.touch()

	var (
		wg   sync.WaitGroup
		up   liberr.Error
		down liberr.Error
	)

	// remote to local
	if !o.f.SendOnly {
		wg.Add(1)
		go func() {
			defer wg.Done()
			down = o.pumpDown(ctx, idle)
			// remote EOF ends the session
			o.sd.Store(true)
		}()
	}

	// local to remote
	if !o.f.RecvOnly {
		wg.Add(1)
		go func() {
			defer wg.Done()
			up = o.pumpUp(ctx, idle)
		}()
	}

	wg.Wait()

	if down != nil {
		return down
	}

	return up
}

// pumpDown moves remote bytes to the local sink and the registered tees.
func (o *trf) pumpDown(ctx context.Context, idle time.Duration) liberr.Error {
	buf := make([]byte, o.f.BufferSize.Int())

	for {
		if o.sd.Load() || ctx.Err() != nil {
			return nil
		}

		if o.idleExpired(idle) {
			o.log(loglvl.InfoLevel, "idle timeout on remote read")
			return nil
		}

		_ = o.c.SetReadDeadline(time.Now().Add(turnTime(idle)))

		n, e := o.c.Read(buf)

		if n > 0 {
			o.touch()
			o.bi.Add(uint64(n))

			if w := o.writeLocal(buf[:n]); w != nil {
				return w
			}
		}

		if e != nil {
			switch libcnx.KindOf(e) {
			case libcnx.KindTimeout:
				continue
			case libcnx.KindInterrupted, libcnx.KindWouldBlock:
				continue
			case libcnx.KindClosed, libcnx.KindPeerReset:
				return nil
			}

			return ErrorRemoteRead.Error(e)
		}
	}
}

func (o *trf) writeLocal(p []byte) liberr.Error {
	o.m.Lock()
	t := o.t
	o.m.Unlock()

	if t != nil {
		// sink failures never break the main flow
		if _, e := t.Write(p); e != nil {
			o.log(loglvl.WarnLevel, "sink write failed")
		}
	}

	for len(p) > 0 {
		n, e := o.o.Write(p)
		if e != nil {
			return ErrorLocalWrite.Error(e)
		}
		p = p[n:]
	}

	return nil
}

// pumpUp moves local bytes to the remote side, applying the CRLF transform
// and the shaping delay. Local EOF triggers the optional half-close and the
// bounded drain wait.
func (o *trf) pumpUp(ctx context.Context, idle time.Duration) liberr.Error {
	var (
		buf = make([]byte, o.f.BufferSize.Int())
		in  = newChanReader(o.i, len(buf))
	)

	defer in.stop()

	for {
		if o.sd.Load() || ctx.Err() != nil {
			return nil
		}

		if o.idleExpired(idle) {
			return nil
		}

		p, e := in.read(turnTime(idle))

		if len(p) > 0 {
			o.touch()

			if o.f.CRLF {
				p = expandCRLF(p)
			}

			if w := o.writeRemote(p); w != nil {
				return w
			}

			o.bo.Add(uint64(len(p)))

			if d := o.f.Delay.Time(); d > 0 {
				time.Sleep(d)
			}
		}

		switch {
		case e == nil:
			continue

		case e == errReadTimeout:
			continue

		case e == io.EOF:
			if o.f.CloseOnEOF {
				_ = o.c.CloseWrite()
			}
			o.drainWait()
			return nil

		default:
			return ErrorLocalRead.Error(e)
		}
	}
}

func (o *trf) writeRemote(p []byte) liberr.Error {
	for len(p) > 0 {
		_ = o.c.SetWriteDeadline(time.Now().Add(turnMax))

		n, e := o.c.Write(p)
		p = p[n:]

		if e != nil {
			switch libcnx.KindOf(e) {
			case libcnx.KindTimeout, libcnx.KindInterrupted, libcnx.KindWouldBlock:
				if o.sd.Load() {
					return nil
				}
				continue
			}

			return ErrorRemoteWrite.Error(e)
		}
	}

	return nil
}

// drainWait leaves the remote reader running for the configured wait after
// a local EOF, then requests shutdown.
func (o *trf) drainWait() {
	if w := o.f.WaitTime.Time(); w > 0 && !o.f.SendOnly {
		t := time.NewTimer(w)
		defer t.Stop()
		<-t.C
	}

	o.sd.Store(true)
}

func turnTime(idle time.Duration) time.Duration {
	if idle > 0 && idle < turnMax {
		return idle
	}

	return turnMax
}
