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

	liberr "github.com/nabbar/golib/errors"
)

// Parse converts one rule string into a Rule. The parse is greedy with
// fallback: a slash makes it a CIDR, then a literal IP is tried, and any
// remainder is taken as a hostname.
func Parse(s string) (Rule, liberr.Error) {
	s = strings.TrimSpace(s)

	if len(s) == 0 {
		return nil, ErrorRuleEmpty.Error(nil)
	}

	if strings.Contains(s, "/") {
		p, e := netip.ParsePrefix(s)
		if e != nil {
			return nil, ErrorRuleParse.Error(e)
		}

		a := p.Addr().Unmap()
		p = netip.PrefixFrom(a, p.Bits())

		if a.Is4() {
			if p.Bits() < 0 || p.Bits() > 32 {
				return nil, ErrorRulePrefix.Error(nil)
			}
			return &rul{k: KindCidr4, p: p}, nil
		}

		if p.Bits() < 0 || p.Bits() > 128 {
			return nil, ErrorRulePrefix.Error(nil)
		}
		return &rul{k: KindCidr6, p: p}, nil
	}

	if a, e := netip.ParseAddr(s); e == nil {
		a = a.Unmap()
		if a.Is4() {
			return &rul{k: KindIPv4, p: netip.PrefixFrom(a, 32)}, nil
		}
		return &rul{k: KindIPv6, p: netip.PrefixFrom(a, 128)}, nil
	}

	if !isHostname(s) {
		return nil, ErrorRuleHostname.Error(nil)
	}

	return &rul{k: KindHostname, h: s}, nil
}

func isHostname(s string) bool {
	if len(s) == 0 || len(s) > 253 {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.' || r == '_':
		default:
			return false
		}
	}

	return true
}
