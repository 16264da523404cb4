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
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

// pump turn length: how often the stop flag and deadlines are re-checked
// while blocked on the socket.
const pumpTurn = 250 * time.Millisecond

// watchTick is the watchdog resolution for the three exec deadlines.
const watchTick = 100 * time.Millisecond

type brg struct {
	f Config
	l liblog.FuncLog

	m sync.Mutex
	x int // child exit code, -1 until reaped
}

// session is the shared state of one Run.
type session struct {
	stop  atomic.Bool  // pumps must finish
	first atomic.Bool  // first byte of traffic seen
	last  atomic.Int64 // last activity, unix nano
	buf   atomic.Int64 // aggregate buffered bytes
	flow  *flowState

	m   sync.Mutex
	err liberr.Error // first fatal error
}

func (s *session) touch() {
	s.first.Store(true)
	s.last.Store(time.Now().UnixNano())
}

func (s *session) fail(e liberr.Error) {
	s.m.Lock()
	if s.err == nil {
		s.err = e
	}
	s.m.Unlock()
	s.stop.Store(true)
}

func (s *session) failure() liberr.Error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.err
}

func (o *brg) log(lvl loglvl.Level, msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(lvl, msg, arg...).Log()
	}
}

func (o *brg) ExitCode() int {
	o.m.Lock()
	defer o.m.Unlock()
	return o.x
}

func (o *brg) setExitCode(c int) {
	o.m.Lock()
	o.x = c
	o.m.Unlock()
}

func (o *brg) command() *exec.Cmd {
	if len(o.f.Shell) > 0 {
		return exec.Command(shellPath, shellFlag, o.f.Shell)
	}

	return exec.Command(o.f.Path, o.f.Args...)
}

// Run spawns the child and drives the pumps. The cleanup contract is
// strict: every pump is joined before the child is reaped, because reaping
// closes the pipe file descriptors out from under a running pump.
func (o *brg) Run(ctx context.Context, cnx libcnx.Connection) liberr.Error {
	cmd := o.command()

	var (
		sin  io.WriteCloser
		sout io.ReadCloser
		serr io.ReadCloser
		e    error
	)

	if o.f.RedirectStdin {
		if sin, e = cmd.StdinPipe(); e != nil {
			return ErrorPipeFailed.Error(e)
		}
	}

	if o.f.RedirectStdout {
		if sout, e = cmd.StdoutPipe(); e != nil {
			return ErrorPipeFailed.Error(e)
		}
	}

	if o.f.RedirectStderr {
		if serr, e = cmd.StderrPipe(); e != nil {
			return ErrorPipeFailed.Error(e)
		}
	}

	if e = cmd.Start(); e != nil {
		return ErrorSpawnFailed.Error(e)
	}

	o.log(loglvl.InfoLevel, "child started with pid %d", cmd.Process.Pid)

	st := &session{
		flow: newFlowState(o.f.MaxBuffer.Int64(), o.f.PausePct, o.f.ResumePct),
	}
	st.last.Store(time.Now().UnixNano())

	var (
		wg    sync.WaitGroup // every pump
		outWg sync.WaitGroup // output pumps only
		done  = make(chan struct{})
		start = time.Now()
	)

	if sin != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.pumpStdin(cnx, sin, st)
		}()
	}

	if sout != nil {
		wg.Add(1)
		outWg.Add(1)
		go func() {
			defer wg.Done()
			defer outWg.Done()
			o.pumpOut(cnx, sout, st, o.f.StdoutBuffer.Int())
		}()
	}

	if serr != nil {
		wg.Add(1)
		outWg.Add(1)
		go func() {
			defer wg.Done()
			defer outWg.Done()
			o.pumpOut(cnx, serr, st, o.f.StderrBuffer.Int())
		}()
	}

	if sout != nil || serr != nil {
		// both child output streams at EOF means the child is gone:
		// release the socket reader instead of feeding a dead process
		go func() {
			outWg.Wait()
			st.stop.Store(true)
		}()
	}

	go o.watchdog(ctx, cmd, st, start, done)

	// ordering contract: pumps join first, the child is reaped last
	wg.Wait()
	close(done)

	e = cmd.Wait()
	o.setExitCode(cmd.ProcessState.ExitCode())

	if err := st.failure(); err != nil {
		return err
	}

	if e != nil {
		var x *exec.ExitError
		if errors.As(e, &x) {
			// a non-zero exit is a result, not a bridge failure
			o.log(loglvl.InfoLevel, "child exited with status %d", x.ExitCode())
			return nil
		}

		return ErrorChildWait.Error(e)
	}

	return nil
}

// pumpStdin moves socket bytes into the child stdin, honoring the flow
// hysteresis and ending on socket EOF, stop request, or a dead child.
func (o *brg) pumpStdin(cnx libcnx.Connection, sin io.WriteCloser, st *session) {
	defer func() {
		_ = sin.Close()
	}()

	buf := make([]byte, o.f.StdinBuffer.Int())

	for {
		if st.stop.Load() {
			return
		}

		if st.flow.update(st.buf.Load()) {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		_ = cnx.SetReadDeadline(time.Now().Add(pumpTurn))

		n, e := cnx.Read(buf)

		if n > 0 {
			st.touch()
			st.buf.Add(int64(n))

			p := buf[:n]
			for len(p) > 0 {
				w, we := sin.Write(p)
				p = p[w:]
				st.buf.Add(-int64(w))

				if we != nil {
					// child went away, nothing left to feed
					return
				}
			}
		}

		if e != nil {
			switch libcnx.KindOf(e) {
			case libcnx.KindTimeout, libcnx.KindInterrupted, libcnx.KindWouldBlock:
				continue
			case libcnx.KindClosed, libcnx.KindPeerReset:
				return
			}

			st.fail(ErrorSocketFailed.Error(e))
			return
		}
	}
}

// pumpOut moves one child output stream to the socket, ending at pipe EOF.
func (o *brg) pumpOut(cnx libcnx.Connection, src io.ReadCloser, st *session, size int) {
	buf := make([]byte, size)

	for {
		n, e := src.Read(buf)

		if n > 0 {
			st.touch()
			st.buf.Add(int64(n))

			p := buf[:n]
			for len(p) > 0 {
				_ = cnx.SetWriteDeadline(time.Now().Add(pumpTurn))

				w, we := cnx.Write(p)
				p = p[w:]

				if we != nil {
					k := libcnx.KindOf(we)
					if k.IsRetryable() && !st.stop.Load() {
						continue
					}

					st.buf.Add(-int64(n))
					st.fail(ErrorSocketFailed.Error(we))
					return
				}
			}

			st.buf.Add(-int64(n))
		}

		if e != nil {
			// EOF: the pipe closed because the child finished this stream
			return
		}

		if st.stop.Load() {
			return
		}
	}
}

// watchdog enforces the three deadlines and the context, terminating the
// child with the escalation ladder when one expires.
func (o *brg) watchdog(ctx context.Context, cmd *exec.Cmd, st *session, start time.Time, done <-chan struct{}) {
	t := time.NewTicker(watchTick)
	defer t.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			o.log(loglvl.InfoLevel, "context cancelled, terminating child")
			st.stop.Store(true)
			terminate(cmd.Process)
			return

		case <-t.C:
		}

		if st.stop.Load() {
			continue
		}

		if d := o.f.ExecTimeout.Time(); d > 0 && time.Since(start) > d {
			st.fail(ErrorExecTimeout.Error(nil))
			terminate(cmd.Process)
			return
		}

		if d := o.f.ConnTimeout.Time(); d > 0 && !st.first.Load() && time.Since(start) > d {
			st.fail(ErrorConnTimeout.Error(nil))
			terminate(cmd.Process)
			return
		}

		if d := o.f.IdleTimeout.Time(); d > 0 && st.first.Load() {
			if time.Since(time.Unix(0, st.last.Load())) > d {
				st.fail(ErrorIdleTimeout.Error(nil))
				terminate(cmd.Process)
				return
			}
		}
	}
}
