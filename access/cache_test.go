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
	"errors"
	"net/netip"
	"sync/atomic"
	"time"

	libacc "github.com/whit3rabbit/zigcat/access"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DNS Cache", func() {
	It("should perform one lookup for repeated resolutions within the TTL", func() {
		var calls atomic.Int64

		c := libacc.NewCache(time.Minute, func(host string) ([]netip.Addr, error) {
			calls.Add(1)
			return []netip.Addr{netip.MustParseAddr("198.51.100.1")}, nil
		})

		a := c.Resolve("cached.example.com")
		b := c.Resolve("cached.example.com")

		Expect(calls.Load()).To(Equal(int64(1)))
		Expect(b).To(Equal(a))
	})

	It("should cache failed resolutions as empty entries", func() {
		var calls atomic.Int64

		c := libacc.NewCache(time.Minute, func(host string) ([]netip.Addr, error) {
			calls.Add(1)
			return nil, errors.New("no such host")
		})

		Expect(c.Resolve("gone.example.com")).To(BeEmpty())
		Expect(c.Resolve("gone.example.com")).To(BeEmpty())
		Expect(calls.Load()).To(Equal(int64(1)))
		Expect(c.Len()).To(Equal(1))
	})

	It("should re-resolve after the TTL expired", func() {
		var calls atomic.Int64

		c := libacc.NewCache(10*time.Millisecond, func(host string) ([]netip.Addr, error) {
			calls.Add(1)
			return []netip.Addr{netip.MustParseAddr("198.51.100.1")}, nil
		})

		_ = c.Resolve("short.example.com")
		time.Sleep(25 * time.Millisecond)
		_ = c.Resolve("short.example.com")

		Expect(calls.Load()).To(Equal(int64(2)))
	})

	It("should normalize the hostname case", func() {
		var calls atomic.Int64

		c := libacc.NewCache(time.Minute, func(host string) ([]netip.Addr, error) {
			calls.Add(1)
			Expect(host).To(Equal("mixed.example.com"))
			return nil, nil
		})

		_ = c.Resolve("MiXeD.Example.COM")
		_ = c.Resolve("mixed.example.com")

		Expect(calls.Load()).To(Equal(int64(1)))
	})

	It("should flush every entry", func() {
		c := libacc.NewCache(time.Minute, func(host string) ([]netip.Addr, error) {
			return nil, nil
		})

		_ = c.Resolve("a.example.com")
		_ = c.Resolve("b.example.com")
		Expect(c.Len()).To(Equal(2))

		c.Flush()
		Expect(c.Len()).To(Equal(0))
	})
})
