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

// Package access implements the connection admission rules: single IP,
// CIDR (v4 and v6) and hostname rules grouped into an ordered allow list and
// an ordered deny list.
//
// Evaluation is deny-first: any matching deny rule rejects the peer before
// the allow list is consulted. A non-empty allow list then requires at least
// one match; an empty allow list accepts everything not denied.
//
// Hostname rules resolve through a TTL cache so that repeated peers do not
// trigger repeated lookups. Hostname rules depend on DNS answers and should
// be avoided on security-critical paths.
package access

import (
	"net/netip"
	"time"
)

// RuleKind discriminates the variants of a parsed rule.
type RuleKind uint8

const (
	KindUnknown RuleKind = iota
	KindIPv4
	KindIPv6
	KindCidr4
	KindCidr6
	KindHostname
)

// Rule is one admission rule. Matching ignores the peer port.
type Rule interface {
	// Kind returns the variant of the rule.
	Kind() RuleKind

	// String serializes the rule back to its parseable form.
	// For non-hostname rules, Parse(r.String()) yields an equal rule.
	String() string

	// Match reports whether the given peer address matches the rule.
	// Hostname rules resolve through the given cache; a failed or empty
	// resolution never matches. A nil cache makes hostname rules match false.
	Match(ip netip.Addr, c DNSCache) bool
}

// List is an ordered pair of allow and deny rules with deny-first evaluation.
type List interface {
	// AddAllow appends rules to the allow sequence.
	AddAllow(r ...Rule)

	// AddDeny appends rules to the deny sequence.
	AddDeny(r ...Rule)

	// ParseAppend parses every line and appends it to the allow or the deny
	// sequence. Empty lines and lines starting with '#' are skipped.
	ParseAppend(allow bool, lines ...string) error

	// LenAllow returns the number of allow rules.
	LenAllow() int

	// LenDeny returns the number of deny rules.
	LenDeny() int

	// Allowed evaluates the peer address: deny rules first (any match
	// rejects), then the allow rules (at least one must match when the
	// allow sequence is not empty).
	Allowed(ip netip.Addr) bool
}

// Resolver resolves a hostname to its addresses. It backs the DNS cache and
// can be replaced for testing.
type Resolver func(host string) ([]netip.Addr, error)

// DNSCache is a TTL map hostname -> addresses with negative caching:
// a failed resolution is stored with an empty address set so the lookup is
// not retried before expiry. Expired entries are evicted lazily on access.
type DNSCache interface {
	// Resolve returns the cached addresses for host, performing at most one
	// underlying lookup per TTL window.
	Resolve(host string) []netip.Addr

	// Len returns the number of stored cache entries, including expired
	// entries that no Resolve call has evicted yet.
	Len() int

	// Flush drops every cached entry.
	Flush()
}

// DefaultTTL is the lifetime of a DNS cache entry.
const DefaultTTL = 300 * time.Second

// New returns an empty access list resolving hostname rules through the
// given cache. A nil cache disables hostname matching.
func New(c DNSCache) List {
	return &lst{
		c: c,
	}
}
