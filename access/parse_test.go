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
	libacc "github.com/whit3rabbit/zigcat/access"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Rule Parsing", func() {
	Context("with literal addresses", func() {
		It("should parse an IPv4 single address", func() {
			r, err := libacc.Parse("192.168.1.10")
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Kind()).To(Equal(libacc.KindIPv4))
		})

		It("should parse an IPv6 single address", func() {
			r, err := libacc.Parse("2001:db8::1")
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Kind()).To(Equal(libacc.KindIPv6))
		})
	})

	Context("with CIDR prefixes", func() {
		It("should parse an IPv4 network", func() {
			r, err := libacc.Parse("10.0.0.0/8")
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Kind()).To(Equal(libacc.KindCidr4))
		})

		It("should parse an IPv6 network", func() {
			r, err := libacc.Parse("2001:db8::/32")
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Kind()).To(Equal(libacc.KindCidr6))
		})

		It("should reject an IPv4 prefix above 32", func() {
			_, err := libacc.Parse("10.0.0.0/40")
			Expect(err).To(HaveOccurred())
		})

		It("should reject garbage around the slash", func() {
			_, err := libacc.Parse("not/a/prefix")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("with hostnames", func() {
		It("should fall back to a hostname rule", func() {
			r, err := libacc.Parse("peer.example.com")
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Kind()).To(Equal(libacc.KindHostname))
		})

		It("should reject forbidden characters", func() {
			_, err := libacc.Parse("bad host!")
			Expect(err).To(HaveOccurred())
		})

		It("should reject an empty rule", func() {
			_, err := libacc.Parse("   ")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("round trip", func() {
		It("should serialize back to a parseable identical rule", func() {
			for _, s := range []string{
				"192.168.1.10",
				"2001:db8::1",
				"10.0.0.0/8",
				"172.16.0.0/12",
				"2001:db8::/32",
			} {
				r1, err := libacc.Parse(s)
				Expect(err).ToNot(HaveOccurred())

				r2, err := libacc.Parse(r1.String())
				Expect(err).ToNot(HaveOccurred())

				Expect(r2.Kind()).To(Equal(r1.Kind()))
				Expect(r2.String()).To(Equal(r1.String()))
			}
		})
	})
})
