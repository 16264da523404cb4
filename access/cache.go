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

package access

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// NewCache returns a DNS cache with the given TTL. A zero or negative TTL
// uses DefaultTTL. A nil resolver uses the system resolver.
func NewCache(ttl time.Duration, fct Resolver) DNSCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if fct == nil {
		fct = systemResolver
	}

	return &dns{
		t: ttl,
		f: fct,
		e: make(map[string]entry),
	}
}

type entry struct {
	a []netip.Addr
	x time.Time // expiry, wall clock
}

type dns struct {
	m sync.Mutex
	t time.Duration
	f Resolver
	e map[string]entry
	n func() time.Time // test clock, nil means time.Now
}

func (o *dns) now() time.Time {
	if o.n != nil {
		return o.n()
	}

	return time.Now()
}

func (o *dns) Resolve(host string) []netip.Addr {
	host = strings.ToLower(strings.TrimSpace(host))

	if len(host) == 0 {
		return nil
	}

	o.m.Lock()
	defer o.m.Unlock()

	if v, k := o.e[host]; k {
		if o.now().Before(v.x) {
			return v.a
		}
		delete(o.e, host)
	}

	// a failed lookup caches an empty set to suppress repeated resolution
	a, e := o.f(host)
	if e != nil {
		a = nil
	}

	o.e[host] = entry{
		a: a,
		x: o.now().Add(o.t),
	}

	return a
}

func (o *dns) Len() int {
	o.m.Lock()
	defer o.m.Unlock()

	return len(o.e)
}

func (o *dns) Flush() {
	o.m.Lock()
	defer o.m.Unlock()

	o.e = make(map[string]entry)
}

func systemResolver(host string) ([]netip.Addr, error) {
	c, cnl := context.WithTimeout(context.Background(), 5*time.Second)
	defer cnl()

	return net.DefaultResolver.LookupNetIP(c, "ip", host)
}
