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

// Package config is the value-type record the command line produces and
// the engines consume. The record is built once by the startup path and
// handed to the core as an immutable reference; cross-field constraints
// (conflicting modes, family exclusivity, flow thresholds) are checked here
// so every engine can trust its inputs.
package config

import (
	"fmt"
	"net/netip"

	libbrg "github.com/whit3rabbit/zigcat/bridge"
	libpxy "github.com/whit3rabbit/zigcat/proxy"
	librly "github.com/whit3rabbit/zigcat/relay"
	libsec "github.com/whit3rabbit/zigcat/secure"
	libsrv "github.com/whit3rabbit/zigcat/server"
	libtrf "github.com/whit3rabbit/zigcat/transfer"
	libtpt "github.com/whit3rabbit/zigcat/transport"

	libval "github.com/go-playground/validator/v10"
	liberr "github.com/nabbar/golib/errors"
)

// Mode is the top-level direction of the tool.
type Mode uint8

const (
	ModeConnect Mode = iota
	ModeListen
)

// Config is the complete runtime configuration.
type Config struct {
	// Mode selects connecting out or listening.
	Mode Mode `mapstructure:"mode" json:"mode" yaml:"mode"`

	// Transport selects the wire flavor.
	Transport libtpt.Transport `mapstructure:"transport" json:"transport" yaml:"transport"`

	// Server configures the stream listener, Client the outbound connect,
	// Datagram the UDP pseudo-session.
	Server   libsrv.Config     `mapstructure:"server" json:"server" yaml:"server"`
	Client   libsrv.DialConfig `mapstructure:"client" json:"client" yaml:"client"`
	Datagram libsrv.UDPConfig  `mapstructure:"datagram" json:"datagram" yaml:"datagram"`

	// Transfer tunes the stdio pump.
	Transfer libtrf.Config `mapstructure:"transfer" json:"transfer" yaml:"transfer"`

	// Telnet enables the in-band option codec.
	Telnet bool `mapstructure:"telnet" json:"telnet" yaml:"telnet"`

	// ZeroIO probes the target and closes without transferring.
	ZeroIO bool `mapstructure:"zeroIO" json:"zeroIO" yaml:"zeroIO"`

	// NoDNS forces numeric addressing everywhere.
	NoDNS bool `mapstructure:"noDNS" json:"noDNS" yaml:"noDNS"`

	// Broker / Chat select the relay engine; Relay tunes it.
	Broker bool          `mapstructure:"broker" json:"broker" yaml:"broker"`
	Chat   bool          `mapstructure:"chat" json:"chat" yaml:"chat"`
	Relay  librly.Config `mapstructure:"relay" json:"relay" yaml:"relay"`

	// Exec bridges the peer to a child process when non-nil.
	Exec *libbrg.Config `mapstructure:"exec" json:"exec" yaml:"exec"`

	// TLS enables the secure adapter configured by Secure.
	TLS    bool          `mapstructure:"tls" json:"tls" yaml:"tls"`
	Secure libsec.Config `mapstructure:"secure" json:"secure" yaml:"secure"`

	// Proxy routes outbound connects through a traversal hop.
	Proxy *libpxy.Config `mapstructure:"proxy" json:"proxy" yaml:"proxy"`

	// Access rules, inline and from files, allow and deny.
	Allow      []string `mapstructure:"allow" json:"allow" yaml:"allow"`
	Deny       []string `mapstructure:"deny" json:"deny" yaml:"deny"`
	AllowFiles []string `mapstructure:"allowFiles" json:"allowFiles" yaml:"allowFiles"`
	DenyFiles  []string `mapstructure:"denyFiles" json:"denyFiles" yaml:"denyFiles"`

	// AllowDangerous accepts exec on a listener without an allow list.
	AllowDangerous bool `mapstructure:"allowDangerous" json:"allowDangerous" yaml:"allowDangerous"`

	// RequireAllowWithExec refuses exec unless an allow list exists, even
	// with AllowDangerous set.
	RequireAllowWithExec bool `mapstructure:"requireAllowWithExec" json:"requireAllowWithExec" yaml:"requireAllowWithExec"`

	// DropUser is the account privileges are dropped to after bind.
	DropUser string `mapstructure:"dropUser" json:"dropUser" yaml:"dropUser"`

	// Output sinks.
	HexDumpFile string `mapstructure:"hexDumpFile" json:"hexDumpFile" yaml:"hexDumpFile"`
	HexDump     bool   `mapstructure:"hexDump" json:"hexDump" yaml:"hexDump"`
	OutputFile  string `mapstructure:"outputFile" json:"outputFile" yaml:"outputFile"`
	Append      bool   `mapstructure:"append" json:"append" yaml:"append"`
}

// HasAccessRules reports whether any allow rule is configured.
func (c *Config) HasAccessRules() bool {
	return len(c.Allow) > 0 || len(c.AllowFiles) > 0
}

// Validate checks the struct constraints and the cross-field rules.
func (c *Config) Validate() liberr.Error {
	err := ErrorValidatorError.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		}

		for _, e := range er.(libval.ValidationErrors) {
			//nolint goerr113
			err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
		}
	}

	if err.HasParent() {
		return err
	}

	return c.validateCross()
}

func (c *Config) validateCross() liberr.Error {
	if !c.Transport.IsValid() {
		return ErrorValidatorError.Error(nil)
	}

	relay := c.Broker || c.Chat

	if relay && c.Exec != nil {
		return ErrorModeConflict.Error(nil)
	}

	if relay && c.Transport.IsDatagram() {
		return ErrorModeConflict.Error(nil)
	}

	if relay && c.Mode != ModeListen {
		return ErrorModeConflict.Error(nil)
	}

	if c.Broker && c.Chat {
		return ErrorModeConflict.Error(nil)
	}

	if c.ip4() && c.ip6() {
		return ErrorFamilyConflict.Error(nil)
	}

	if c.Exec != nil {
		if e := c.Exec.Validate(); e != nil {
			return e
		}

		if c.RequireAllowWithExec && !c.HasAccessRules() {
			return ErrorModeConflict.Error(nil)
		}
	}

	if c.Mode == ModeConnect && c.Transport != libtpt.Unix {
		if len(c.Client.Host) == 0 || c.Client.Port == 0 {
			return ErrorTargetMissing.Error(nil)
		}

		// numeric-only mode refuses targets that would need resolution
		if c.NoDNS {
			if _, e := netip.ParseAddr(c.Client.Host); e != nil {
				return ErrorTargetMissing.Error(e)
			}
		}
	}

	if c.Transport == libtpt.Unix {
		if c.Mode == ModeListen && len(c.Server.Path) == 0 {
			return ErrorTargetMissing.Error(nil)
		}
		if c.Mode == ModeConnect && len(c.Client.Path) == 0 {
			return ErrorTargetMissing.Error(nil)
		}
	}

	return nil
}

func (c *Config) ip4() bool {
	return c.Server.IP4Only || c.Client.IP4Only || c.Datagram.IP4Only
}

func (c *Config) ip6() bool {
	return c.Server.IP6Only || c.Client.IP6Only || c.Datagram.IP6Only
}
