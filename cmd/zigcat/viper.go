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

package main

import (
	libtpt "github.com/whit3rabbit/zigcat/transport"

	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

// fileConfig is the settings record resolved through viper. Every key is
// bound to the matching command-line flag, so the usual precedence holds:
// a flag given on the command line wins over the config file, which wins
// over the flag default. The transport and host keys only exist in the
// file; transport is decoded through the transport viper hook.
type fileConfig struct {
	Transport libtpt.Transport `mapstructure:"transport"`
	Host      string           `mapstructure:"host"`

	Listen   bool `mapstructure:"listen"`
	KeepOpen bool `mapstructure:"keep-open"`
	MaxConns int  `mapstructure:"max-conns"`

	Broker     bool `mapstructure:"broker"`
	Chat       bool `mapstructure:"chat"`
	MaxClients int  `mapstructure:"max-clients"`

	IdleTimeout    int64 `mapstructure:"idle-timeout"`
	ConnectTimeout int64 `mapstructure:"connect-timeout"`

	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`

	SSL           bool   `mapstructure:"ssl"`
	SSLCert       string `mapstructure:"ssl-cert"`
	SSLKey        string `mapstructure:"ssl-key"`
	SSLVerify     bool   `mapstructure:"ssl-verify"`
	SSLTrust      string `mapstructure:"ssl-trustfile"`
	SSLServerName string `mapstructure:"ssl-servername"`

	Proxy     string `mapstructure:"proxy"`
	ProxyType string `mapstructure:"proxy-type"`
	ProxyAuth string `mapstructure:"proxy-auth"`
	ProxyDNS  string `mapstructure:"proxy-dns"`
}

// loadFileConfig binds the command's flag set into viper, reads the
// optional config file, and resolves the settings record.
func loadFileConfig(cmd *spfcbr.Command, path string) (*fileConfig, error) {
	v := spfvpr.New()

	if e := v.BindPFlags(cmd.Flags()); e != nil {
		return nil, e
	}

	if len(path) > 0 {
		v.SetConfigFile(path)

		if e := v.ReadInConfig(); e != nil {
			return nil, e
		}
	}

	var fc fileConfig

	if e := v.Unmarshal(&fc, spfvpr.DecodeHook(libtpt.ViperDecoderHook())); e != nil {
		return nil, e
	}

	return &fc, nil
}

// apply folds the resolved settings back into the flag record so the rest
// of the build path sees one source of truth.
func (fc *fileConfig) apply(f *flags) {
	if fc == nil {
		return
	}

	f.transport = fc.Transport
	f.host = fc.Host

	f.listen = fc.Listen
	f.keep = fc.KeepOpen
	f.maxConns = fc.MaxConns

	f.broker = fc.Broker
	f.chat = fc.Chat
	f.maxClients = fc.MaxClients

	f.idleTimeout = fc.IdleTimeout
	f.connectTimeout = fc.ConnectTimeout

	f.allow = fc.Allow
	f.deny = fc.Deny

	f.ssl = fc.SSL
	f.sslCert = fc.SSLCert
	f.sslKey = fc.SSLKey
	f.sslVerify = fc.SSLVerify
	f.sslTrust = fc.SSLTrust
	f.sslServerName = fc.SSLServerName

	f.proxyAddr = fc.Proxy
	f.proxyType = fc.ProxyType
	f.proxyAuth = fc.ProxyAuth
	f.proxyDNS = fc.ProxyDNS
}
