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

import "net/netip"

type rul struct {
	k RuleKind
	p netip.Prefix // IP and CIDR kinds, single addresses carried as full-length prefixes
	h string       // hostname kind
}

func (o *rul) Kind() RuleKind {
	return o.k
}

func (o *rul) String() string {
	switch o.k {
	case KindIPv4, KindIPv6:
		return o.p.Addr().String()
	case KindCidr4, KindCidr6:
		return o.p.String()
	case KindHostname:
		return o.h
	}

	return ""
}

func (o *rul) Match(ip netip.Addr, c DNSCache) bool {
	if !ip.IsValid() {
		return false
	}

	ip = ip.Unmap()

	switch o.k {
	case KindIPv4, KindIPv6, KindCidr4, KindCidr6:
		if o.p.Addr().Is4() != ip.Is4() {
			return false
		}
		return o.p.Contains(ip)

	case KindHostname:
		if c == nil {
			return false
		}
		for _, a := range c.Resolve(o.h) {
			if a.Unmap() == ip {
				return true
			}
		}
	}

	return false
}
