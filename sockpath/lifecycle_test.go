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

//go:build !windows

package sockpath_test

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	libsp "github.com/whit3rabbit/zigcat/sockpath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func tmpSock(name string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("zigcat_%s_%d.sock", name, os.Getpid()))
}

var _ = Describe("Path Validation", func() {
	It("should accept a normal path", func() {
		Expect(libsp.New(tmpSock("ok"), nil).Validate()).ToNot(HaveOccurred())
	})

	It("should reject an empty path", func() {
		Expect(libsp.New("", nil).Validate()).To(HaveOccurred())
	})

	It("should reject a path above the platform limit", func() {
		p := "/tmp/" + strings.Repeat("x", 200)
		e := libsp.New(p, nil).Validate()
		Expect(e).To(HaveOccurred())
		Expect(e.IsCode(libsp.ErrorPathTooLong)).To(BeTrue())
	})

	It("should reject abstract namespace addresses", func() {
		for _, p := range []string{"@abstract", "\x00hidden"} {
			e := libsp.New(p, nil).Validate()
			Expect(e).To(HaveOccurred())
			Expect(e.IsCode(libsp.ErrorPathAbstract)).To(BeTrue(), p)
		}
	})

	It("should reject control characters except tab", func() {
		e := libsp.New("/tmp/bad\x01name.sock", nil).Validate()
		Expect(e).To(HaveOccurred())
		Expect(e.IsCode(libsp.ErrorPathInvalidChar)).To(BeTrue())

		Expect(libsp.New("/tmp/odd\tname.sock", nil).Validate()).ToNot(HaveOccurred())
	})
})

var _ = Describe("Stale Socket Reclaim", func() {
	It("should proceed when the path does not exist", func() {
		p := tmpSock("missing")
		_ = os.Remove(p)

		Expect(libsp.New(p, nil).Prepare()).ToNot(HaveOccurred())
	})

	It("should remove a dead socket file and continue", func() {
		p := tmpSock("stale")
		_ = os.Remove(p)

		// create a socket file, then kill its listener
		l, err := net.Listen("unix", p)
		Expect(err).ToNot(HaveOccurred())
		if u, k := l.(*net.UnixListener); k {
			u.SetUnlinkOnClose(false)
		}
		_ = l.Close()

		_, err = os.Stat(p)
		Expect(err).ToNot(HaveOccurred())

		Expect(libsp.New(p, nil).Prepare()).ToNot(HaveOccurred())

		_, err = os.Stat(p)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("should refuse a path owned by a live listener", func() {
		p := tmpSock("live")
		_ = os.Remove(p)

		l, err := net.Listen("unix", p)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = l.Close(); _ = os.Remove(p) }()

		e := libsp.New(p, nil).Prepare()
		Expect(e).To(HaveOccurred())
		Expect(e.IsCode(libsp.ErrorAddressInUse)).To(BeTrue())
	})
})

var _ = Describe("Umask Clamp", func() {
	It("should narrow and restore the umask around bind", func() {
		sp := libsp.New(tmpSock("umask"), nil)

		restore := sp.ClampUmask()

		l, err := net.Listen("unix", sp.Path())
		restore()

		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = l.Close() }()
		defer sp.Cleanup()

		i, err := os.Stat(sp.Path())
		Expect(err).ToNot(HaveOccurred())
		Expect(i.Mode().Perm() & 0o077).To(Equal(os.FileMode(0)))
	})
})

var _ = Describe("Shutdown Cleanup", func() {
	It("should remove the socket file", func() {
		p := tmpSock("cleanup")
		_ = os.Remove(p)

		l, err := net.Listen("unix", p)
		Expect(err).ToNot(HaveOccurred())
		if u, k := l.(*net.UnixListener); k {
			u.SetUnlinkOnClose(false)
		}
		_ = l.Close()

		libsp.New(p, nil).Cleanup()

		_, err = os.Stat(p)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
