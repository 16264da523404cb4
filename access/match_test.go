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

package access_test

import (
	"net/netip"

	libacc "github.com/whit3rabbit/zigcat/access"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustRule(s string) libacc.Rule {
	r, err := libacc.Parse(s)
	Expect(err).ToNot(HaveOccurred())
	return r
}

func addr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

var _ = Describe("Rule Matching", func() {
	Context("CIDR prefixes", func() {
		It("should match addresses sharing the prefix bits", func() {
			r := mustRule("10.1.0.0/16")

			Expect(r.Match(addr("10.1.2.3"), nil)).To(BeTrue())
			Expect(r.Match(addr("10.1.255.255"), nil)).To(BeTrue())
			Expect(r.Match(addr("10.2.0.1"), nil)).To(BeFalse())
		})

		It("should never match across families", func() {
			r := mustRule("0.0.0.0/0")

			Expect(r.Match(addr("192.0.2.1"), nil)).To(BeTrue())
			Expect(r.Match(addr("2001:db8::1"), nil)).To(BeFalse())
		})

		It("should match a mapped IPv4 peer against an IPv4 rule", func() {
			r := mustRule("192.0.2.0/24")

			Expect(r.Match(addr("::ffff:192.0.2.7"), nil)).To(BeTrue())
		})

		It("should honor IPv6 prefix boundaries", func() {
			r := mustRule("2001:db8:aaaa::/48")

			Expect(r.Match(addr("2001:db8:aaaa::1"), nil)).To(BeTrue())
			Expect(r.Match(addr("2001:db8:bbbb::1"), nil)).To(BeFalse())
		})
	})

	Context("single addresses", func() {
		It("should match only the exact address", func() {
			r := mustRule("192.0.2.7")

			Expect(r.Match(addr("192.0.2.7"), nil)).To(BeTrue())
			Expect(r.Match(addr("192.0.2.8"), nil)).To(BeFalse())
		})
	})

	Context("hostname rules", func() {
		It("should match through the resolver cache", func() {
			c := libacc.NewCache(0, func(host string) ([]netip.Addr, error) {
				return []netip.Addr{addr("198.51.100.9")}, nil
			})

			r := mustRule("peer.example.com")

			Expect(r.Match(addr("198.51.100.9"), c)).To(BeTrue())
			Expect(r.Match(addr("198.51.100.10"), c)).To(BeFalse())
		})

		It("should match false without a cache", func() {
			r := mustRule("peer.example.com")
			Expect(r.Match(addr("198.51.100.9"), nil)).To(BeFalse())
		})
	})
})

var _ = Describe("Access List Evaluation", func() {
	It("should accept everything with no rules", func() {
		l := libacc.New(nil)
		Expect(l.Allowed(addr("203.0.113.5"))).To(BeTrue())
	})

	It("should let deny rules win over allow rules", func() {
		l := libacc.New(nil)
		Expect(l.ParseAppend(true, "10.0.0.0/8")).ToNot(HaveOccurred())
		Expect(l.ParseAppend(false, "10.1.0.0/16")).ToNot(HaveOccurred())

		Expect(l.Allowed(addr("10.2.0.1"))).To(BeTrue())
		Expect(l.Allowed(addr("10.1.0.1"))).To(BeFalse())
	})

	It("should require a match when the allow list is non-empty", func() {
		l := libacc.New(nil)
		Expect(l.ParseAppend(true, "127.0.0.1")).ToNot(HaveOccurred())

		Expect(l.Allowed(addr("127.0.0.1"))).To(BeTrue())
		Expect(l.Allowed(addr("192.0.2.1"))).To(BeFalse())
	})

	It("should pass deny-only lists unless denied", func() {
		l := libacc.New(nil)
		Expect(l.ParseAppend(false, "192.0.2.0/24")).ToNot(HaveOccurred())

		Expect(l.Allowed(addr("192.0.2.55"))).To(BeFalse())
		Expect(l.Allowed(addr("198.51.100.1"))).To(BeTrue())
	})

	It("should skip comments and blank lines in rule input", func() {
		l := libacc.New(nil)
		Expect(l.ParseAppend(true, "# comment", "", "127.0.0.1")).ToNot(HaveOccurred())
		Expect(l.LenAllow()).To(Equal(1))
	})
})
