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

package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	libdlm "github.com/nabbar/golib/ioutils/delim"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

const (
	warnLevel = loglvl.WarnLevel
	infoLevel = loglvl.InfoLevel

	// nickDeadline bounds the wait for the first chat line.
	nickDeadline = 30 * time.Second

	// sweepTick drives the idle sweep and the shutdown check.
	sweepTick = 500 * time.Millisecond

	// brokerChunk is the broker-mode read size.
	brokerChunk = 32 * 1024
)

type rly struct {
	f Config
	l liblog.FuncLog
	p *pool

	sd atomic.Bool
	rj atomic.Uint64
	wg sync.WaitGroup
}

func (o *rly) log(lvl loglvl.Level, msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(lvl, msg, arg...).Log()
	}
}

func (o *rly) Clients() int {
	return o.p.size()
}

func (o *rly) Rejected() uint64 {
	return o.rj.Load()
}

func (o *rly) Shutdown() {
	if !o.sd.CompareAndSwap(false, true) {
		return
	}

	for _, c := range o.p.snapshot() {
		o.drop(c.id, false)
	}
}

func (o *rly) Run(ctx context.Context) {
	t := time.NewTicker(sweepTick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			o.Shutdown()
			o.wg.Wait()
			return

		case <-t.C:
		}

		if o.sd.Load() {
			o.wg.Wait()
			return
		}

		o.sweepIdle()
	}
}

func (o *rly) sweepIdle() {
	idle := o.f.IdleTimeout.Time()
	if idle <= 0 {
		return
	}

	for _, c := range o.p.snapshot() {
		if time.Since(time.Unix(0, c.last.Load())) > idle {
			o.log(infoLevel, "removing idle client #%d", c.id)
			o.drop(c.id, true)
		}
	}
}

func (o *rly) Accept(cnx libcnx.Connection) {
	if o.sd.Load() {
		_ = cnx.Close()
		return
	}

	c, ok := o.p.insert(cnx)
	if !ok {
		// admission control: full pool, close before any byte is read
		o.rj.Add(1)
		_ = cnx.Close()
		return
	}

	o.log(infoLevel, "client #%d joined pool from %v", c.id, c.addr)

	o.wg.Add(2)
	go o.writer(c)
	go o.reader(c)
}

// writer drains the client's outbound ring. A write failure marks the
// client failed; the drop happens outside any fan-out iteration.
func (o *rly) writer(c *client) {
	defer o.wg.Done()

	for {
		select {
		case <-c.done:
			return

		case p := <-c.q:
			total := len(p)

			for len(p) > 0 {
				n, e := c.cnx.Write(p)
				p = p[n:]

				if e != nil {
					c.failed.Store(true)
					o.drop(c.id, true)
					return
				}
			}

			c.out.Add(uint64(total))
		}
	}
}

// reader consumes the client's inbound traffic and fans it out. The read
// blocks without deadline: removal closes the connection, which wakes the
// read with an error.
func (o *rly) reader(c *client) {
	defer o.wg.Done()

	if o.f.Mode == ModeBroker {
		o.readBroker(c)
		o.drop(c.id, true)
		return
	}

	// one buffered line reader serves the nickname exchange and the chat
	// loop, so bytes arriving right behind the nickname are not lost
	r := libdlm.New(c.cnx, '\n', o.f.MaxMsgLen)

	if !o.handshake(c, r) {
		o.drop(c.id, false)
		return
	}

	o.readChat(c, r)
	o.drop(c.id, true)
}

func (o *rly) readBroker(c *client) {
	buf := make([]byte, brokerChunk)

	for {
		n, e := c.cnx.Read(buf)

		if n > 0 {
			c.touch()
			c.in.Add(uint64(n))

			p := make([]byte, n)
			copy(p, buf[:n])
			o.broadcast(c.id, p)
		}

		if e != nil {
			return
		}
	}
}

func (o *rly) readChat(c *client, r libdlm.BufferDelim) {
	for {
		line, e := r.ReadBytes()

		if len(line) > 0 {
			c.touch()
			c.in.Add(uint64(len(line)))
			o.broadcast(c.id, o.chatLine(c.nick, line))
		}

		if e != nil {
			return
		}
	}
}

// chatLine formats one broadcast line, bounding it to the configured cap.
func (o *rly) chatLine(nick string, line []byte) []byte {
	line = trimEOL(line)

	max := o.f.MaxMsgLen.Int()
	if len(line) > max {
		line = line[:max]
	}

	return []byte(fmt.Sprintf("[%s] %s\n", nick, line))
}

// handshake reads and registers the chat nickname. A violation answers
// with a system error line and refuses the client.
func (o *rly) handshake(c *client, r libdlm.BufferDelim) bool {
	_ = c.cnx.SetReadDeadline(time.Now().Add(nickDeadline))

	line, e := r.ReadBytes()

	_ = c.cnx.SetReadDeadline(time.Time{})

	if e != nil && len(line) == 0 {
		return false
	}

	nick := string(trimEOL(line))

	if !ValidNickname(nick, o.f.MaxNickLen.Int()) {
		_, _ = c.cnx.Write([]byte(systemPrefix + " invalid nickname\n"))
		return false
	}

	if !o.p.setNick(c.id, nick) {
		_, _ = c.cnx.Write([]byte(systemPrefix + " nickname already in use\n"))
		return false
	}

	c.touch()
	o.broadcast(c.id, []byte(fmt.Sprintf("%s %s has joined\n", systemPrefix, nick)))
	return true
}

// broadcast fans the payload out to every live client except the sender.
// Enqueueing never blocks: a full ring marks the recipient failed, and the
// failed set is dropped after the iteration completes.
func (o *rly) broadcast(sender uint64, p []byte) {
	var failed []uint64

	for _, t := range o.p.snapshot() {
		if t.id == sender || t.failed.Load() {
			continue
		}

		// chat clients still in the nickname stage get no traffic
		if o.f.Mode == ModeChat && len(t.nick) == 0 {
			continue
		}

		select {
		case t.q <- p:
		default:
			// sustained congestion: isolate instead of stalling the pool
			t.failed.Store(true)
			failed = append(failed, t.id)
		}
	}

	for _, id := range failed {
		o.log(warnLevel, "dropping congested client #%d", id)
		o.drop(id, true)
	}
}

// drop removes the client, closes it, and announces the departure in chat
// mode. It is safe to call from any goroutine and idempotent per client.
func (o *rly) drop(id uint64, announce bool) {
	c := o.p.remove(id)
	if c == nil {
		return
	}

	close(c.done)
	_ = c.cnx.Close()

	if announce && o.f.Mode == ModeChat && len(c.nick) > 0 && !o.sd.Load() {
		o.broadcast(c.id, []byte(fmt.Sprintf("%s %s has left\n", systemPrefix, c.nick)))
	}
}

func trimEOL(p []byte) []byte {
	for len(p) > 0 && (p[len(p)-1] == '\n' || p[len(p)-1] == '\r') {
		p = p[:len(p)-1]
	}

	return p
}
