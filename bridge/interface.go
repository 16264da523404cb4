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

// Package bridge connects a peer connection to a child process's standard
// streams: socket bytes feed the child's stdin, and the child's stdout and
// stderr flow back to the socket. The socket reader is paused and resumed
// by a buffering hysteresis so a slow child cannot make the bridge grow
// without bound.
//
// Cleanup follows a strict ordering: every I/O pump is stopped and joined
// before the child is reaped. Reaping first would close the pipe ends under
// the running pumps and turn an orderly shutdown into a crash.
package bridge

import (
	"context"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	libsiz "github.com/nabbar/golib/size"
)

// Backend selects the reactor implementation running the pumps. A single
// goroutine-reactor backend implements the contract on every platform.
type Backend uint8

const (
	BackendReactor Backend = iota
)

// Default buffer capacities and flow thresholds.
const (
	DefaultStdinBuffer  = 32 * libsiz.SizeKilo
	DefaultStdoutBuffer = 64 * libsiz.SizeKilo
	DefaultStderrBuffer = 32 * libsiz.SizeKilo
	DefaultMaxBuffer    = 256 * libsiz.SizeKilo

	DefaultPausePct  = 0.85
	DefaultResumePct = 0.60
)

// Config describes the child process and the bridge tuning.
type Config struct {
	// Path and Args run a program directly. Ignored when Shell is set.
	Path string   `mapstructure:"path" json:"path" yaml:"path"`
	Args []string `mapstructure:"args" json:"args" yaml:"args"`

	// Shell runs the given command line through the system shell.
	Shell string `mapstructure:"shell" json:"shell" yaml:"shell"`

	// RedirectStdin / RedirectStdout / RedirectStderr bridge the matching
	// child stream; a disabled stream is connected to the null device.
	RedirectStdin  bool `mapstructure:"redirectStdin" json:"redirectStdin" yaml:"redirectStdin"`
	RedirectStdout bool `mapstructure:"redirectStdout" json:"redirectStdout" yaml:"redirectStdout"`
	RedirectStderr bool `mapstructure:"redirectStderr" json:"redirectStderr" yaml:"redirectStderr"`

	// Buffer capacities per stream.
	StdinBuffer  libsiz.Size `mapstructure:"stdinBuffer" json:"stdinBuffer" yaml:"stdinBuffer"`
	StdoutBuffer libsiz.Size `mapstructure:"stdoutBuffer" json:"stdoutBuffer" yaml:"stdoutBuffer"`
	StderrBuffer libsiz.Size `mapstructure:"stderrBuffer" json:"stderrBuffer" yaml:"stderrBuffer"`

	// MaxBuffer is the aggregate ceiling driving the hysteresis.
	MaxBuffer libsiz.Size `mapstructure:"maxBuffer" json:"maxBuffer" yaml:"maxBuffer"`

	// PausePct / ResumePct are fractions of MaxBuffer. The pair must
	// satisfy 0 < resume < pause <= 1.
	PausePct  float64 `mapstructure:"pausePct" json:"pausePct" yaml:"pausePct"`
	ResumePct float64 `mapstructure:"resumePct" json:"resumePct" yaml:"resumePct"`

	// ExecTimeout bounds the total child wall time, IdleTimeout the gap
	// between moved bytes, ConnTimeout the wait for the first byte.
	// Zero disables each.
	ExecTimeout libdur.Duration `mapstructure:"execTimeout" json:"execTimeout" yaml:"execTimeout"`
	IdleTimeout libdur.Duration `mapstructure:"idleTimeout" json:"idleTimeout" yaml:"idleTimeout"`
	ConnTimeout libdur.Duration `mapstructure:"connTimeout" json:"connTimeout" yaml:"connTimeout"`

	// Backend selects the pump implementation.
	Backend Backend `mapstructure:"backend" json:"backend" yaml:"backend"`
}

// DefaultConfig returns a Config with every stream bridged and the default
// buffers and thresholds.
func DefaultConfig() Config {
	return Config{
		RedirectStdin:  true,
		RedirectStdout: true,
		RedirectStderr: true,
		StdinBuffer:    DefaultStdinBuffer,
		StdoutBuffer:   DefaultStdoutBuffer,
		StderrBuffer:   DefaultStderrBuffer,
		MaxBuffer:      DefaultMaxBuffer,
		PausePct:       DefaultPausePct,
		ResumePct:      DefaultResumePct,
	}
}

// Validate checks the command selection and the flow thresholds.
func (c *Config) Validate() liberr.Error {
	if len(c.Path) == 0 && len(c.Shell) == 0 {
		return ErrorParamsMissing.Error(nil)
	}

	p, r := c.PausePct, c.ResumePct

	if p == 0 {
		p = DefaultPausePct
	}

	if r == 0 {
		r = DefaultResumePct
	}

	if !(r > 0 && r < p && p <= 1) {
		return ErrorFlowThresholds.Error(nil)
	}

	return nil
}

// Bridge runs one exec session over one connection.
type Bridge interface {
	// Run spawns the child, pumps until every stream is finished, stops
	// the pumps, then reaps the child. It returns the first fatal error.
	Run(ctx context.Context, cnx libcnx.Connection) liberr.Error

	// ExitCode returns the child exit status after Run, -1 before.
	ExitCode() int
}

// New validates the configuration and builds the bridge.
func New(cfg Config, log liblog.FuncLog) (Bridge, liberr.Error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	if cfg.StdinBuffer <= 0 {
		cfg.StdinBuffer = DefaultStdinBuffer
	}
	if cfg.StdoutBuffer <= 0 {
		cfg.StdoutBuffer = DefaultStdoutBuffer
	}
	if cfg.StderrBuffer <= 0 {
		cfg.StderrBuffer = DefaultStderrBuffer
	}
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = DefaultMaxBuffer
	}
	if cfg.PausePct == 0 {
		cfg.PausePct = DefaultPausePct
	}
	if cfg.ResumePct == 0 {
		cfg.ResumePct = DefaultResumePct
	}

	return &brg{
		f: cfg,
		l: log,
		x: -1,
	}, nil
}
