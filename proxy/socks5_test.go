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

package proxy_test

import (
	"context"
	"net"
	"time"

	libpxy "github.com/whit3rabbit/zigcat/proxy"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SOCKS5 Client", func() {
	It("should complete a domain CONNECT and leave no reply bytes unread", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			// method selection
			h := readN(c, 2)
			Expect(h[0]).To(Equal(byte(0x05)))
			_ = readN(c, int(h[1]))
			_, _ = c.Write([]byte{0x05, 0x00})

			// connect request: ver cmd rsv atyp
			r := readN(c, 4)
			Expect(r).To(Equal([]byte{0x05, 0x01, 0x00, 0x03}))

			l := readN(c, 1)
			host := readN(c, int(l[0]))
			Expect(string(host)).To(Equal("example.com"))

			port := readN(c, 2)
			Expect(port).To(Equal([]byte{0x00, 0x50}))

			// success with an IPv4 bound address
			_, _ = c.Write([]byte{0x05, 0x00, 0x00, 0x01, 127, 0, 0, 1, 0x1f, 0x40})

			// tunnel marker: the caller reads these bytes right after the reply
			_, _ = c.Write([]byte("tunnel"))
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeSocks5,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = c.Close() }()

		b := make([]byte, 16)
		n, e := c.Read(b)
		Expect(e).ToNot(HaveOccurred())
		Expect(string(b[:n])).To(Equal("tunnel"))
	})

	It("should run the username/password sub-negotiation", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			h := readN(c, 2)
			m := readN(c, int(h[1]))
			Expect(m).To(ContainElement(byte(0x02)))
			_, _ = c.Write([]byte{0x05, 0x02})

			v := readN(c, 2)
			Expect(v[0]).To(Equal(byte(0x01)))
			u := readN(c, int(v[1]))
			Expect(string(u)).To(Equal("user"))

			pl := readN(c, 1)
			pw := readN(c, int(pl[0]))
			Expect(string(pw)).To(Equal("pass"))

			_, _ = c.Write([]byte{0x01, 0x00})

			_ = readN(c, 4+4+2) // request with IPv4 literal
			_, _ = c.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address:  addr,
			Kind:     libpxy.TypeSocks5,
			Username: "user",
			Password: "pass",
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "192.0.2.10", 443)
		Expect(err).ToNot(HaveOccurred())
		_ = c.Close()
	})

	It("should map refused tunnels onto the reply error", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			h := readN(c, 2)
			_ = readN(c, int(h[1]))
			_, _ = c.Write([]byte{0x05, 0x00})

			_ = readN(c, 4+4+2)
			_, _ = c.Write([]byte{0x05, 0x05, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeSocks5,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = cli.Connect(context.Background(), "192.0.2.10", 80)
		Expect(err).To(HaveOccurred())
		Expect(err.IsCode(libpxy.ErrorSocks5ConnectionRefused)).To(BeTrue())
	})

	It("should refuse when no method is acceptable", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			h := readN(c, 2)
			_ = readN(c, int(h[1]))
			_, _ = c.Write([]byte{0x05, 0xFF})
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeSocks5,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = cli.Connect(context.Background(), "192.0.2.10", 80)
		Expect(err).To(HaveOccurred())
		Expect(err.IsCode(libpxy.ErrorSocks5Method)).To(BeTrue())
	})
})
