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

// Package transfer pumps bytes between a connection and a local
// source/sink, usually the standard streams. One direction can be disabled,
// bare newlines can be expanded to CRLF on the way out, outbound chunks can
// be delayed for shaping, and the inbound stream can be teed into extra
// sinks such as the hex dumper or the output logger.
//
// A local EOF optionally half-closes the connection and then drains the
// remote side for a bounded wait. Idle timeouts follow a single policy for
// every caller, see EffectiveIdle.
package transfer

import (
	"context"
	"io"

	libcnx "github.com/whit3rabbit/zigcat/connection"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	libsiz "github.com/nabbar/golib/size"
)

// Config tunes one transfer run.
type Config struct {
	// SendOnly disables the remote-to-local direction.
	SendOnly bool `mapstructure:"sendOnly" json:"sendOnly" yaml:"sendOnly"`

	// RecvOnly disables the local-to-remote direction.
	RecvOnly bool `mapstructure:"recvOnly" json:"recvOnly" yaml:"recvOnly"`

	// CloseOnEOF half-closes the connection when the local input ends.
	CloseOnEOF bool `mapstructure:"closeOnEOF" json:"closeOnEOF" yaml:"closeOnEOF"`

	// CRLF expands bare '\n' into "\r\n" on the outbound path.
	CRLF bool `mapstructure:"crlf" json:"crlf" yaml:"crlf"`

	// Delay throttles outbound chunks for traffic shaping.
	Delay libdur.Duration `mapstructure:"delay" json:"delay" yaml:"delay"`

	// WaitTime bounds the drain of remote data after a local EOF.
	WaitTime libdur.Duration `mapstructure:"waitTime" json:"waitTime" yaml:"waitTime"`

	// IdleTimeout is the explicit user idle value: 0 applies the policy
	// default for the context, negative means no deadline.
	IdleTimeout libdur.Duration `mapstructure:"idleTimeout" json:"idleTimeout" yaml:"idleTimeout"`

	// BufferSize is the chunk size for both directions, default 32 KiB.
	BufferSize libsiz.Size `mapstructure:"bufferSize" json:"bufferSize" yaml:"bufferSize"`

	// Server marks the listen-side context for the idle policy.
	Server bool `mapstructure:"-" json:"-" yaml:"-"`

	// Transport feeds the idle policy table.
	Transport libtpt.Transport `mapstructure:"-" json:"-" yaml:"-"`
}

// Transfer is one bidirectional pump over one connection.
type Transfer interface {
	// Run pumps until both directions are finished, the context is
	// cancelled, or Shutdown is called. It returns the first fatal error.
	Run(ctx context.Context) liberr.Error

	// Shutdown requests a clean stop; Run returns after the current turn.
	Shutdown()

	// AddSink tees a copy of the inbound (remote to local) bytes into w.
	AddSink(w ...io.Writer)

	// BytesIn returns the bytes moved remote-to-local.
	BytesIn() uint64

	// BytesOut returns the bytes moved local-to-remote.
	BytesOut() uint64
}

// New builds a transfer between the connection and the local streams.
func New(cnx libcnx.Connection, in io.ReadCloser, out io.Writer, cfg Config, log liblog.FuncLog) Transfer {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 32 * libsiz.SizeKilo
	}

	return &trf{
		c: cnx,
		i: in,
		o: out,
		f: cfg,
		l: log,
	}
}
