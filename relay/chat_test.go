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

var _ = Describe("Chat Mode", func() {
	var (
		r   librly.Relay
		ctx context.Context
		cnl context.CancelFunc
	)

	BeforeEach(func() {
		var err error
		r, err = librly.New(librly.Config{
			Mode:       librly.ModeChat,
			MaxClients: 5,
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

	It("should announce a join to the earlier client", func() {
		a := newPeer(r)
		defer a.close()
		a.send("alice\n")

		eventually(func() bool { return r.Clients() == 1 })

		b := newPeer(r)
		defer b.close()
		b.send("bob\n")

		eventually(func() bool {
			s := a.received()
			return strings.Contains(strings.ToLower(s), "bob") && strings.Contains(s, "joined")
		})
	})

	It("should prefix messages with the sender nickname", func() {
		a := newPeer(r)
		defer a.close()
		a.send("alice\n")

		b := newPeer(r)
		defer b.close()
		b.send("bob\n")

		eventually(func() bool {
			return strings.Contains(a.received(), "joined")
		})

		b.send("Hi Alice!\n")

		eventually(func() bool {
			s := a.received()
			return strings.Contains(s, "[bob]") && strings.Contains(s, "Hi Alice")
		})
	})

	It("should refuse a duplicate nickname case-insensitively", func() {
		a := newPeer(r)
		defer a.close()
		a.send("alice\n")

		eventually(func() bool { return r.Clients() == 1 })

		b := newPeer(r)
		defer b.close()
		b.send("ALICE\n")

		eventually(func() bool {
			return strings.Contains(b.received(), "already in use")
		})

		eventually(func() bool { return r.Clients() == 1 })
	})

	It("should refuse an invalid nickname", func() {
		a := newPeer(r)
		defer a.close()
		a.send("***root\n")

		eventually(func() bool {
			return strings.Contains(a.received(), "invalid nickname")
		})
	})

	It("should announce a departure", func() {
		a := newPeer(r)
		defer a.close()
		a.send("alice\n")

		b := newPeer(r)
		b.send("bob\n")

		eventually(func() bool {
			return strings.Contains(a.received(), "joined")
		})

		b.close()

		eventually(func() bool {
			s := a.received()
			return strings.Contains(s, "bob") && strings.Contains(s, "left")
		})
	})
})

var _ = Describe("Nickname Validation", func() {
	It("should accept the allowed charset", func() {
		for _, n := range []string{"alice", "Bob-2", "c.d_e", "X"} {
			Expect(librly.ValidNickname(n, 32)).To(BeTrue(), n)
		}
	})

	It("should reject forbidden names", func() {
		for _, n := range []string{"", "a b", "***sys", "héllo", strings.Repeat("x", 33)} {
			Expect(librly.ValidNickname(n, 32)).To(BeFalse(), n)
		}
	})
})
