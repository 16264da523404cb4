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
	"strings"
	"time"

	libtrf "github.com/whit3rabbit/zigcat/transfer"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Hex Dump Sink", func() {
	It("should format canonical rows with offset and ascii column", func() {
		var b bytes.Buffer

		h := libtrf.NewHexDump(&b)
		_, err := h.Write([]byte("GET / HTTP/1.1\r\nHost"))
		Expect(err).ToNot(HaveOccurred())
		Expect(h.Close()).ToNot(HaveOccurred())

		lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))

		Expect(lines[0]).To(HavePrefix("00000000  "))
		Expect(lines[0]).To(ContainSubstring("47 45 54"))
		Expect(lines[0]).To(ContainSubstring("|GET / HTTP/1.1..|"))

		Expect(lines[1]).To(HavePrefix("00000010  "))
		Expect(lines[1]).To(ContainSubstring("|Host|"))
	})

	It("should keep a continuous offset across writes", func() {
		var b bytes.Buffer

		h := libtrf.NewHexDump(&b)
		_, _ = h.Write(bytes.Repeat([]byte{0xAA}, 16))
		_, _ = h.Write(bytes.Repeat([]byte{0xBB}, 16))
		_ = h.Close()

		Expect(b.String()).To(ContainSubstring("00000010"))
	})
})

var _ = Describe("Idle Policy", func() {
	It("should honor an explicit user value", func() {
		Expect(libtrf.EffectiveIdle(5*time.Second, true, libtpt.TCP, false)).
			To(Equal(5 * time.Second))
	})

	It("should disable the deadline on a negative value", func() {
		Expect(libtrf.EffectiveIdle(-1, true, libtpt.TCP, false)).
			To(Equal(time.Duration(0)))
	})

	It("should leave client connects unbounded by default", func() {
		Expect(libtrf.EffectiveIdle(0, false, libtpt.TCP, false)).
			To(Equal(time.Duration(0)))
	})

	It("should bound a non-terminal server input", func() {
		Expect(libtrf.EffectiveIdle(0, true, libtpt.TCP, false)).
			To(Equal(30 * time.Second))
	})

	It("should leave a terminal-driven server unbounded", func() {
		Expect(libtrf.EffectiveIdle(0, true, libtpt.TCP, true)).
			To(Equal(time.Duration(0)))
	})

	It("should always bound datagram servers", func() {
		Expect(libtrf.EffectiveIdle(0, true, libtpt.UDP, true)).
			To(Equal(30 * time.Second))
	})
})
