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

package relay

import (
	"regexp"
	"strings"
)

// systemPrefix starts every system line; nicknames must not collide with it.
const systemPrefix = "***"

var nickPattern = regexp.MustCompile(`^[A-Za-z0-9_\-\.]+$`)

// ValidNickname checks the candidate against the protocol rules: allowed
// charset, bounded length, and no reserved system prefix. Uniqueness is
// enforced separately by the pool.
func ValidNickname(nick string, maxLen int) bool {
	if len(nick) == 0 || len(nick) > maxLen {
		return false
	}

	if strings.HasPrefix(nick, systemPrefix) {
		return false
	}

	return nickPattern.MatchString(nick)
}
