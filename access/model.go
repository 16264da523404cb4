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
	"net/netip"
	"strings"
	"sync"
)

type lst struct {
	m sync.RWMutex
	a []Rule // allow, ordered
	d []Rule // deny, ordered
	c DNSCache
}

func (o *lst) AddAllow(r ...Rule) {
	o.m.Lock()
	defer o.m.Unlock()

	for _, i := range r {
		if i != nil {
			o.a = append(o.a, i)
		}
	}
}

func (o *lst) AddDeny(r ...Rule) {
	o.m.Lock()
	defer o.m.Unlock()

	for _, i := range r {
		if i != nil {
			o.d = append(o.d, i)
		}
	}
}

func (o *lst) ParseAppend(allow bool, lines ...string) error {
	for _, s := range lines {
		s = strings.TrimSpace(s)

		if len(s) == 0 || strings.HasPrefix(s, "#") {
			continue
		}

		r, e := Parse(s)
		if e != nil {
			return e
		}

		if allow {
			o.AddAllow(r)
		} else {
			o.AddDeny(r)
		}
	}

	return nil
}

func (o *lst) LenAllow() int {
	o.m.RLock()
	defer o.m.RUnlock()

	return len(o.a)
}

func (o *lst) LenDeny() int {
	o.m.RLock()
	defer o.m.RUnlock()

	return len(o.d)
}

func (o *lst) Allowed(ip netip.Addr) bool {
	o.m.RLock()
	defer o.m.RUnlock()

	// deny always wins
	for _, r := range o.d {
		if r.Match(ip, o.c) {
			return false
		}
	}

	if len(o.a) == 0 {
		return true
	}

	for _, r := range o.a {
		if r.Match(ip, o.c) {
			return true
		}
	}

	return false
}
