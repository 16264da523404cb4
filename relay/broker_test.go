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

package relay_test

import (
	"context"
	"strings"
	"time"

	librly "github.com/whit3rabbit/zigcat/relay"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Broker Mode", func() {
	var (
		r   librly.Relay
		ctx context.Context
		cnl context.CancelFunc
	)

	BeforeEach(func() {
		var err error
		r, err = librly.New(librly.Config{
			Mode:       librly.ModeBroker,
			MaxClients: 3,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl = context.WithCancel(context.Background())
		go r.Run(ctx)
	})

	AfterEach(func() {
		r.Shutdown()
		cnl()
		time.Sleep(50 * time.Millisecond)
	})

	It("should fan bytes out to the other client only", func() {
		a := newPeer(r)
		b := newPeer(r)
		defer a.close()
		defer b.close()

		eventually(func() bool { return r.Clients() == 2 })

		a.send("Hello from client1\n")

		eventually(func() bool {
			return strings.Contains(b.received(), "Hello from client1")
		})

		// the sender never sees its own bytes
		Consistently(func() string { return a.received() },
			200*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
	})

	It("should close the fourth client at admission", func() {
		a := newPeer(r)
		b := newPeer(r)
		c := newPeer(r)
		defer a.close()
		defer b.close()
		defer c.close()

		eventually(func() bool { return r.Clients() == 3 })

		d := newPeer(r)
		defer d.close()

		// rejected promptly with EOF, the pool never exceeds the limit
		done := make(chan struct{})
		go func() {
			defer close(done)
			buf := make([]byte, 1)
			_, _ = d.c.Read(buf)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			Fail("fourth client was not closed promptly")
		}

		Expect(r.Clients()).To(BeNumerically("<=", 3))
		Expect(r.Rejected()).To(BeNumerically(">=", uint64(1)))
	})

	It("should keep relaying after a client disappears", func() {
		a := newPeer(r)
		b := newPeer(r)
		c := newPeer(r)
		defer b.close()
		defer c.close()

		eventually(func() bool { return r.Clients() == 3 })

		a.close()
		eventually(func() bool { return r.Clients() == 2 })

		c.send("Test message after disconnect\n")

		eventually(func() bool {
			return strings.Contains(b.received(), "Test message after disconnect")
		})
	})

	It("should preserve sender order towards one recipient", func() {
		a := newPeer(r)
		b := newPeer(r)
		defer a.close()
		defer b.close()

		eventually(func() bool { return r.Clients() == 2 })

		a.send("one ")
		a.send("two ")
		a.send("three")

		eventually(func() bool {
			return strings.Contains(b.received(), "one two three")
		})
	})
})
