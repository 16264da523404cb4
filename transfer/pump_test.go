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

package transfer_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net"
	"sync"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"
	libtrf "github.com/whit3rabbit/zigcat/transfer"

	libdur "github.com/nabbar/golib/duration"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// safeBuffer is a goroutine-safe write sink.
type safeBuffer struct {
	m sync.Mutex
	b bytes.Buffer
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.b.Write(p)
}

func (s *safeBuffer) String() string {
	s.m.Lock()
	defer s.m.Unlock()
	return s.b.String()
}

func (s *safeBuffer) Len() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.b.Len()
}

var _ = Describe("Transfer Pump", func() {
	It("should move bytes unchanged in both directions", func() {
		local, remote := net.Pipe()
		defer func() { _ = remote.Close() }()

		payload := make([]byte, 64*1024)
		_, err := rand.Read(payload)
		Expect(err).ToNot(HaveOccurred())

		in := io.NopCloser(bytes.NewReader(payload))
		out := &safeBuffer{}

		t := libtrf.New(
			libcnx.New(local, libcnx.TypePlain, nil),
			in, out,
			libtrf.Config{
				CloseOnEOF: true,
				WaitTime:   libdur.Duration(2 * time.Second),
			},
			nil,
		)

		var echoed bytes.Buffer
		var wg sync.WaitGroup

		// the remote side echoes everything back
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { _ = remote.Close() }()

			buf := make([]byte, 4096)

			for {
				n, e := remote.Read(buf)

				if n > 0 {
					echoed.Write(buf[:n])
					if _, w := remote.Write(buf[:n]); w != nil {
						return
					}
				}

				if e != nil {
					return
				}

				if echoed.Len() == len(payload) {
					return
				}
			}
		}()

		err2 := t.Run(context.Background())
		wg.Wait()

		Expect(err2).ToNot(HaveOccurred())
		Expect(echoed.Bytes()).To(Equal(payload))
		Expect(out.String()).To(Equal(string(payload)))
		Expect(t.BytesOut()).To(Equal(uint64(len(payload))))
	})

	It("should tee inbound bytes into registered sinks", func() {
		local, remote := net.Pipe()

		out := &safeBuffer{}
		tee := &safeBuffer{}

		t := libtrf.New(
			libcnx.New(local, libcnx.TypePlain, nil),
			io.NopCloser(bytes.NewReader(nil)), out,
			libtrf.Config{RecvOnly: true},
			nil,
		)
		t.AddSink(tee)

		go func() {
			_, _ = remote.Write([]byte("teed data"))
			time.Sleep(50 * time.Millisecond)
			_ = remote.Close()
		}()

		Expect(t.Run(context.Background())).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("teed data"))
		Expect(tee.String()).To(Equal("teed data"))
	})

	It("should stop on shutdown", func() {
		local, remote := net.Pipe()
		defer func() { _ = remote.Close() }()

		blocked, _ := io.Pipe()

		t := libtrf.New(
			libcnx.New(local, libcnx.TypePlain, nil),
			blocked, &safeBuffer{},
			libtrf.Config{},
			nil,
		)

		done := make(chan error, 1)
		go func() { done <- t.Run(context.Background()) }()

		time.Sleep(100 * time.Millisecond)
		t.Shutdown()

		select {
		case e := <-done:
			Expect(e).ToNot(HaveOccurred())
		case <-time.After(2 * time.Second):
			Fail("transfer did not stop on shutdown")
		}
	})
})

var _ = Describe("CRLF Expansion", func() {
	It("should expand bare newlines on the outbound path", func() {
		local, remote := net.Pipe()

		t := libtrf.New(
			libcnx.New(local, libcnx.TypePlain, nil),
			io.NopCloser(bytes.NewReader([]byte("a\nb\r\nc\n"))), &safeBuffer{},
			libtrf.Config{CRLF: true, SendOnly: true, CloseOnEOF: true},
			nil,
		)

		var got bytes.Buffer
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 256)
			for {
				n, e := remote.Read(buf)
				if n > 0 {
					got.Write(buf[:n])
				}
				if e != nil {
					return
				}
			}
		}()

		Expect(t.Run(context.Background())).ToNot(HaveOccurred())
		_ = remote.Close()
		wg.Wait()

		Expect(got.String()).To(Equal("a\r\nb\r\nc\r\n"))
	})
})
