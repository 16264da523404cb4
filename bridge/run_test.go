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

package bridge_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"time"

	libbrg "github.com/whit3rabbit/zigcat/bridge"
	libcnx "github.com/whit3rabbit/zigcat/connection"

	libdur "github.com/nabbar/golib/duration"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// session wires a pipe pair and collects the socket-side output.
func session(cfg libbrg.Config, feed string, closeAfter time.Duration) (string, int, error) {
	b, err := libbrg.New(cfg, nil)
	Expect(err).ToNot(HaveOccurred())

	local, remote := net.Pipe()

	var (
		out bytes.Buffer
		wg  sync.WaitGroup
	)

	if closeAfter > 0 {
		// simulate the peer going away after its input is delivered
		time.AfterFunc(closeAfter, func() {
			_ = remote.Close()
		})
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		if len(feed) > 0 {
			_, _ = remote.Write([]byte(feed))
		}

		buf := make([]byte, 4096)
		for {
			n, e := remote.Read(buf)
			if n > 0 {
				out.Write(buf[:n])
			}
			if e != nil {
				return
			}
		}
	}()

	e := b.Run(context.Background(), libcnx.New(local, libcnx.TypePlain, nil))

	_ = remote.Close()
	_ = local.Close()
	wg.Wait()

	return out.String(), b.ExitCode(), e
}

var _ = Describe("Exec Bridge", func() {
	It("should survive a child that exits immediately", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Path = "/bin/true"

		done := make(chan struct{})

		var code int
		var err error

		go func() {
			defer close(done)
			_, code, err = session(cfg, "", 100*time.Millisecond)
		}()

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			Fail("bridge did not return after an immediate child exit")
		}

		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(0))
	})

	It("should pump child stdout to the socket", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Shell = "echo hello-from-child"

		out, code, err := session(cfg, "", 200*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(0))
		Expect(out).To(ContainSubstring("hello-from-child"))
	})

	It("should feed socket bytes into child stdin", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Shell = "tr a-z A-Z"

		out, _, err := session(cfg, "shout\n", 300*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("SHOUT"))
	})

	It("should report the child exit status", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Shell = "exit 7"

		_, code, err := session(cfg, "", 100*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())
		Expect(code).To(Equal(7))
	})

	It("should terminate a runaway child on the execution deadline", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Shell = "sleep 30"
		cfg.ExecTimeout = libdur.Duration(300 * time.Millisecond)

		start := time.Now()
		_, _, err := session(cfg, "", 0)

		Expect(err).To(HaveOccurred())
		Expect(err.IsCode(libbrg.ErrorExecTimeout)).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})

	It("should fail to spawn a missing program", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Path = "/nonexistent/progam"

		b, err := libbrg.New(cfg, nil)
		Expect(err).ToNot(HaveOccurred())

		local, remote := net.Pipe()
		defer func() { _ = remote.Close() }()
		defer func() { _ = local.Close() }()

		e := b.Run(context.Background(), libcnx.New(local, libcnx.TypePlain, nil))
		Expect(e).To(HaveOccurred())
		Expect(e.IsCode(libbrg.ErrorSpawnFailed)).To(BeTrue())
	})
})

var _ = Describe("Flow Configuration", func() {
	It("should refuse thresholds out of order", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Path = "/bin/true"
		cfg.PausePct = 0.5
		cfg.ResumePct = 0.9

		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should refuse a pause above one", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Path = "/bin/true"
		cfg.PausePct = 1.5

		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should accept the defaults", func() {
		cfg := libbrg.DefaultConfig()
		cfg.Path = "/bin/true"

		Expect(cfg.Validate()).ToNot(HaveOccurred())
	})

	It("should refuse a config with no command", func() {
		cfg := libbrg.DefaultConfig()
		Expect(cfg.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Exec Policy", func() {
	It("should pass on the connect side", func() {
		Expect(libbrg.CheckPolicy(false, false, false, nil)).ToNot(HaveOccurred())
	})

	It("should require an allow list on a listener", func() {
		e := libbrg.CheckPolicy(true, false, false, nil)
		Expect(e).To(HaveOccurred())
		Expect(e.IsCode(libbrg.ErrorPolicyAllowRequired)).To(BeTrue())
	})

	It("should pass with an allow list", func() {
		Expect(libbrg.CheckPolicy(true, true, false, nil)).ToNot(HaveOccurred())
	})

	It("should pass with the explicit override", func() {
		Expect(libbrg.CheckPolicy(true, false, true, nil)).ToNot(HaveOccurred())
	})
})

var _ = Describe("Command Line", func() {
	It("should keep strings.Fields from eating quoted shells", func() {
		// the shell form goes through /bin/sh -c verbatim
		cfg := libbrg.DefaultConfig()
		cfg.Shell = "printf '%s-%s' a b"

		out, _, err := session(cfg, "", 200*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())
		Expect(strings.TrimSpace(out)).To(Equal("a-b"))
	})
})
