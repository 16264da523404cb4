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

package config

import (
	"os"
	"strings"

	libacc "github.com/whit3rabbit/zigcat/access"

	liberr "github.com/nabbar/golib/errors"
)

// BuildAccessList assembles the access list from the inline rules and the
// rule files. A nil cache creates the default TTL cache for hostname rules.
func (c *Config) BuildAccessList(cache libacc.DNSCache) (libacc.List, liberr.Error) {
	if cache == nil {
		cache = libacc.NewCache(0, nil)
	}

	l := libacc.New(cache)

	if e := l.ParseAppend(true, c.Allow...); e != nil {
		return nil, ErrorValidatorError.Error(e)
	}

	if e := l.ParseAppend(false, c.Deny...); e != nil {
		return nil, ErrorValidatorError.Error(e)
	}

	for _, f := range c.AllowFiles {
		if e := appendFile(l, true, f); e != nil {
			return nil, e
		}
	}

	for _, f := range c.DenyFiles {
		if e := appendFile(l, false, f); e != nil {
			return nil, e
		}
	}

	return l, nil
}

func appendFile(l libacc.List, allow bool, file string) liberr.Error {
	b, e := os.ReadFile(file)
	if e != nil {
		return ErrorRuleFileRead.Error(e)
	}

	if r := l.ParseAppend(allow, strings.Split(string(b), "\n")...); r != nil {
		return ErrorValidatorError.Error(r)
	}

	return nil
}
