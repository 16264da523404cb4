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

package server_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	libacc "github.com/whit3rabbit/zigcat/access"
	libcnx "github.com/whit3rabbit/zigcat/connection"
	libsrv "github.com/whit3rabbit/zigcat/server"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var nextPort atomic.Int32

func init() {
	nextPort.Store(38200)
}

func testAddr() (string, int) {
	p := int(nextPort.Add(1))
	return fmt.Sprintf("127.0.0.1:%d", p), p
}

func echoHandler(_ context.Context, cnx libcnx.Connection) {
	defer func() { _ = cnx.Close() }()

	buf := make([]byte, 1024)

	for {
		n, e := cnx.Read(buf)
		if n > 0 {
			if _, w := cnx.Write(buf[:n]); w != nil {
				return
			}
		}
		if e != nil {
			return
		}
	}
}

func waitDial(addr string) net.Conn {
	var (
		c net.Conn
		e error
	)

	Eventually(func() error {
		c, e = net.DialTimeout("tcp", addr, 250*time.Millisecond)
		return e
	}, 2*time.Second, 25*time.Millisecond).ShouldNot(HaveOccurred())

	return c
}

var _ = Describe("TCP Listener", func() {
	It("should accept and serve until the context ends", func() {
		addr, port := testAddr()

		srv, err := libsrv.New(libsrv.Config{
			Transport:     libtpt.TCP,
			Address:       "127.0.0.1",
			Port:          port,
			KeepListening: true,
			MaxConns:      4,
		}, echoHandler, nil, nil, nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			defer close(done)
			_ = srv.Listen(ctx)
		}()

		c := waitDial(addr)
		defer func() { _ = c.Close() }()

		_, err2 := c.Write([]byte("ping"))
		Expect(err2).ToNot(HaveOccurred())

		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		b := make([]byte, 4)
		_, err2 = io.ReadFull(c, b)
		Expect(err2).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal("ping"))

		cnl()

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			Fail("listener did not stop on context cancel")
		}
	})

	It("should close denied peers before reading any byte", func() {
		addr, port := testAddr()

		acl := libacc.New(nil)
		Expect(acl.ParseAppend(false, "127.0.0.1")).ToNot(HaveOccurred())

		srv, err := libsrv.New(libsrv.Config{
			Transport:     libtpt.TCP,
			Address:       "127.0.0.1",
			Port:          port,
			KeepListening: true,
		}, echoHandler, acl, nil, nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl := context.WithCancel(context.Background())
		defer cnl()
		go func() { _ = srv.Listen(ctx) }()

		c := waitDial(addr)
		defer func() { _ = c.Close() }()

		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		b := make([]byte, 1)
		_, e := c.Read(b)
		Expect(e).To(Equal(io.EOF))

		Eventually(func() uint64 { return srv.Rejected() },
			2*time.Second, 25*time.Millisecond).Should(BeNumerically(">=", uint64(1)))
	})

	It("should exit after one handler without keep-listening", func() {
		addr, port := testAddr()

		srv, err := libsrv.New(libsrv.Config{
			Transport: libtpt.TCP,
			Address:   "127.0.0.1",
			Port:      port,
		}, echoHandler, nil, nil, nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl := context.WithCancel(context.Background())
		defer cnl()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = srv.Listen(ctx)
		}()

		c := waitDial(addr)
		_, _ = c.Write([]byte("x"))
		_ = c.Close()

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			Fail("single-shot listener did not exit")
		}
	})
})

var _ = Describe("Unix Listener", func() {
	It("should serve over a socket file and remove it on close", func() {
		path := fmt.Sprintf("%s/zigcat_srv_%d.sock", "/tmp", nextPort.Add(1))

		srv, err := libsrv.New(libsrv.Config{
			Transport:     libtpt.Unix,
			Path:          path,
			KeepListening: true,
		}, echoHandler, nil, nil, nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			defer close(done)
			_ = srv.Listen(ctx)
		}()

		var c net.Conn
		Eventually(func() error {
			var e error
			c, e = net.Dial("unix", path)
			return e
		}, 2*time.Second, 25*time.Millisecond).ShouldNot(HaveOccurred())

		_, err2 := c.Write([]byte("hello"))
		Expect(err2).ToNot(HaveOccurred())

		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		b := make([]byte, 5)
		_, err2 = io.ReadFull(c, b)
		Expect(err2).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal("hello"))
		_ = c.Close()

		cnl()
		<-done

		Eventually(func() bool {
			_, e := net.Dial("unix", path)
			return e != nil
		}, 2*time.Second, 25*time.Millisecond).Should(BeTrue())
	})
})

var _ = Describe("UDP Pseudo Session", func() {
	It("should intern sources and echo datagrams", func() {
		_, port := testAddr()

		u := libsrv.NewUDP(libsrv.UDPConfig{
			Address:       "127.0.0.1",
			Port:          port,
			KeepListening: true,
		}, nil, nil)

		ctx, cnl := context.WithCancel(context.Background())
		defer cnl()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = u.Listen(ctx)
		}()

		time.Sleep(100 * time.Millisecond)

		c, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = c.Close() }()

		_, err = c.Write([]byte("dgram"))
		Expect(err).ToNot(HaveOccurred())

		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		b := make([]byte, 16)
		n, err := c.Read(b)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b[:n])).To(Equal("dgram"))

		Eventually(u.Clients, 2*time.Second, 25*time.Millisecond).Should(Equal(1))

		_ = u.Close()
		<-done
	})

	It("should exit after the first datagram without keep-listening", func() {
		_, port := testAddr()

		u := libsrv.NewUDP(libsrv.UDPConfig{
			Address: "127.0.0.1",
			Port:    port,
		}, nil, nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = u.Listen(context.Background())
		}()

		time.Sleep(100 * time.Millisecond)

		c, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = c.Close() }()

		_, _ = c.Write([]byte("once"))

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			Fail("single-shot udp server did not exit")
		}
	})
})
