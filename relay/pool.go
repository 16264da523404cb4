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
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"
)

// client is one pool record. The identifier is monotonic and unique for
// the pool's lifetime.
type client struct {
	id   uint64
	cnx  libcnx.Connection
	addr net.Addr
	at   time.Time // connected at

	last   atomic.Int64 // last activity, unix nano
	in     atomic.Uint64
	out    atomic.Uint64
	failed atomic.Bool

	nick string

	q    chan []byte   // bounded outbound ring
	done chan struct{} // closed on removal
}

func (c *client) touch() {
	c.last.Store(time.Now().UnixNano())
}

// pool is the thread-safe client table. One mutex serializes every
// mutation; holders never perform blocking I/O inside the lock.
type pool struct {
	m   sync.Mutex
	c   map[uint64]*client
	n   map[string]uint64 // lowercase nickname index
	max int
	seq uint64
}

func newPool(max int) *pool {
	return &pool{
		c:   make(map[uint64]*client),
		n:   make(map[string]uint64),
		max: max,
	}
}

// insert admits the connection, returning false when the pool is full.
func (p *pool) insert(cnx libcnx.Connection) (*client, bool) {
	p.m.Lock()
	defer p.m.Unlock()

	if len(p.c) >= p.max {
		return nil, false
	}

	p.seq++

	c := &client{
		id:   p.seq,
		cnx:  cnx,
		addr: cnx.RemoteAddr(),
		at:   time.Now(),
		q:    make(chan []byte, ringChunks),
		done: make(chan struct{}),
	}
	c.touch()

	p.c[c.id] = c
	return c, true
}

// setNick registers the nickname, enforcing case-insensitive uniqueness.
func (p *pool) setNick(id uint64, nick string) bool {
	p.m.Lock()
	defer p.m.Unlock()

	k := strings.ToLower(nick)

	if _, used := p.n[k]; used {
		return false
	}

	c, ok := p.c[id]
	if !ok {
		return false
	}

	c.nick = nick
	p.n[k] = id
	return true
}

// remove drops the record, returning it when it was still present.
func (p *pool) remove(id uint64) *client {
	p.m.Lock()
	defer p.m.Unlock()

	c, ok := p.c[id]
	if !ok {
		return nil
	}

	delete(p.c, id)

	if len(c.nick) > 0 {
		delete(p.n, strings.ToLower(c.nick))
	}

	return c
}

func (p *pool) size() int {
	p.m.Lock()
	defer p.m.Unlock()

	return len(p.c)
}

// snapshot returns the current clients; the slice is private to the caller.
func (p *pool) snapshot() []*client {
	p.m.Lock()
	defer p.m.Unlock()

	l := make([]*client, 0, len(p.c))
	for _, c := range p.c {
		l = append(l, c)
	}

	return l
}
