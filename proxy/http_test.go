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
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	libpxy "github.com/whit3rabbit/zigcat/proxy"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func readRequest(c net.Conn) []string {
	r := bufio.NewReader(c)
	var lines []string

	for {
		l, e := r.ReadString('\n')
		Expect(e).ToNot(HaveOccurred())

		l = strings.TrimRight(l, "\r\n")
		if len(l) == 0 {
			return lines
		}

		lines = append(lines, l)
	}
}

var _ = Describe("HTTP CONNECT Client", func() {
	It("should send the exact request line and host header", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			lines := readRequest(c)
			Expect(lines[0]).To(Equal("CONNECT example.com:80 HTTP/1.1"))
			Expect(lines).To(ContainElement("Host: example.com:80"))

			_, _ = c.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeHTTP,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		_ = c.Close()
	})

	It("should reassemble a response fragmented by the transport", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			_ = readRequest(c)

			_, _ = c.Write([]byte("HTTP/1.1 200 Connection Established\r\nP"))
			time.Sleep(50 * time.Millisecond)
			_, _ = c.Write([]byte("roxy-Agent: mock\r\n\r\n"))
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeHTTP,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		_ = c.Close()
	})

	It("should add basic credentials when configured", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			lines := readRequest(c)
			// base64("user:pass")
			Expect(lines).To(ContainElement("Proxy-Authorization: Basic dXNlcjpwYXNz"))

			_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\n\r\n"))
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address:  addr,
			Kind:     libpxy.TypeHTTP,
			Username: "user",
			Password: "pass",
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		_ = c.Close()
	})

	It("should surface a non-200 status as the status error", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			_ = readRequest(c)
			_, _ = c.Write([]byte("HTTP/1.1 407 Proxy Authentication Required\r\n\r\n"))
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeHTTP,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = cli.Connect(context.Background(), "example.com", 80)
		Expect(err).To(HaveOccurred())
		Expect(err.IsCode(libpxy.ErrorHTTPStatus)).To(BeTrue())
	})

	It("should preserve tunnel bytes arriving with the header tail", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			_ = readRequest(c)
			_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\n\r\nearly-tunnel-bytes"))
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeHTTP,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = c.Close() }()

		b := make([]byte, 32)
		n, e := c.Read(b)
		Expect(e).ToNot(HaveOccurred())
		Expect(string(b[:n])).To(Equal("early-tunnel-bytes"))
	})
})

var _ = Describe("SOCKS4 Client", func() {
	It("should send the fixed request and accept reply code 90", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			h := readN(c, 8)
			Expect(h[0]).To(Equal(byte(0x04)))
			Expect(h[1]).To(Equal(byte(0x01)))
			Expect(h[2:4]).To(Equal([]byte{0x00, 0x50}))
			Expect(h[4:8]).To(Equal([]byte{192, 0, 2, 10}))

			// user id up to the NUL terminator
			one := make([]byte, 1)
			for {
				_, e := c.Read(one)
				Expect(e).ToNot(HaveOccurred())
				if one[0] == 0x00 {
					break
				}
			}

			_, _ = c.Write([]byte{0x00, 90, 0, 0, 0, 0, 0, 0})
			time.Sleep(50 * time.Millisecond)
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeSocks4,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		c, err := cli.Connect(context.Background(), "192.0.2.10", 80)
		Expect(err).ToNot(HaveOccurred())
		_ = c.Close()
	})

	It("should map reply 91 onto the rejection error", func() {
		addr := mockProxy(func(c net.Conn) {
			defer GinkgoRecover()

			h := readN(c, 8)
			Expect(h[0]).To(Equal(byte(0x04)))

			one := make([]byte, 1)
			for {
				_, e := c.Read(one)
				Expect(e).ToNot(HaveOccurred())
				if one[0] == 0x00 {
					break
				}
			}

			_, _ = c.Write([]byte{0x00, 91, 0, 0, 0, 0, 0, 0})
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeSocks4,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = cli.Connect(context.Background(), "192.0.2.10", 80)
		Expect(err).To(HaveOccurred())
		Expect(err.IsCode(libpxy.ErrorSocks4Rejected)).To(BeTrue())
	})

	It("should refuse targets without an IPv4 address", func() {
		addr := mockProxy(func(c net.Conn) {
			time.Sleep(50 * time.Millisecond)
			_ = c.Close()
		})

		cli, err := libpxy.New(libpxy.Config{
			Address: addr,
			Kind:    libpxy.TypeSocks4,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = cli.Connect(context.Background(), "2001:db8::1", 80)
		Expect(err).To(HaveOccurred())
		Expect(err.IsCode(libpxy.ErrorSocks4NoIPv4)).To(BeTrue())
	})
})
