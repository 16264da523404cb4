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

// Package relay is the multi-client fan-out engine. In broker mode every
// byte read from one client is forwarded verbatim to all others; in chat
// mode clients first register a nickname and traffic becomes line-oriented
// with system announcements.
//
// A sender never receives its own bytes. A recipient too slow to drain its
// bounded outbound ring is removed rather than allowed to stall the others.
package relay

import (
	"context"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	libsiz "github.com/nabbar/golib/size"
)

// Mode selects the relay behavior.
type Mode uint8

const (
	ModeBroker Mode = iota
	ModeChat
)

// Defaults for the chat protocol limits and the admission ceiling.
const (
	DefaultMaxClients = 64
	DefaultMaxNickLen = 32
	DefaultMaxMsgLen  = 1024

	// ringChunks bounds the per-client outbound ring, in queued chunks.
	ringChunks = 32

	// selectSafeClients is the ceiling a select()-based poller can serve;
	// a larger configured limit draws a startup warning for portability.
	selectSafeClients = 20
)

// Config tunes one relay instance.
type Config struct {
	// Mode selects broker or chat behavior.
	Mode Mode `mapstructure:"mode" json:"mode" yaml:"mode"`

	// MaxClients is the admission ceiling: connections above it are
	// closed immediately.
	MaxClients int `mapstructure:"maxClients" json:"maxClients" yaml:"maxClients" validate:"omitempty,min=1"`

	// MaxNickLen / MaxMsgLen cap the chat nickname and one chat line.
	MaxNickLen libsiz.Size `mapstructure:"maxNickLen" json:"maxNickLen" yaml:"maxNickLen"`
	MaxMsgLen  libsiz.Size `mapstructure:"maxMsgLen" json:"maxMsgLen" yaml:"maxMsgLen"`

	// IdleTimeout removes clients without activity, zero disables.
	IdleTimeout libdur.Duration `mapstructure:"idleTimeout" json:"idleTimeout" yaml:"idleTimeout"`
}

// Relay accepts clients and fans their traffic out.
type Relay interface {
	// Run drives the sweeps until the context ends or Shutdown is called.
	Run(ctx context.Context)

	// Accept admits the connection into the pool, or closes it when the
	// pool is full. In chat mode the nickname exchange runs first.
	Accept(cnx libcnx.Connection)

	// Shutdown closes every client and stops Run.
	Shutdown()

	// Clients returns the live pool size.
	Clients() int

	// Rejected returns how many connections were refused at admission.
	Rejected() uint64
}

// New builds a relay from the configuration.
func New(cfg Config, log liblog.FuncLog) (Relay, liberr.Error) {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}

	if cfg.MaxNickLen <= 0 {
		cfg.MaxNickLen = DefaultMaxNickLen
	}

	if cfg.MaxMsgLen <= 0 {
		cfg.MaxMsgLen = DefaultMaxMsgLen
	}

	r := &rly{
		f: cfg,
		l: log,
		p: newPool(cfg.MaxClients),
	}

	if cfg.MaxClients > selectSafeClients {
		r.log(warnLevel, "client limit %d exceeds the portable select ceiling of %d", cfg.MaxClients, selectSafeClients)
	}

	return r, nil
}
