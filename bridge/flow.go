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

package bridge

import "sync"

// flowState applies the buffering hysteresis: the socket reader pauses when
// the aggregate buffered bytes reach the high threshold and resumes only
// once they fall back under the low one, so the pump does not oscillate
// around a single limit.
type flowState struct {
	m sync.Mutex
	h int64 // pause threshold, bytes
	l int64 // resume threshold, bytes
	p bool  // currently paused
}

func newFlowState(capacity int64, pausePct, resumePct float64) *flowState {
	return &flowState{
		h: int64(float64(capacity) * pausePct),
		l: int64(float64(capacity) * resumePct),
	}
}

// update folds the current aggregate into the hysteresis and returns
// whether the socket reader must hold off.
func (o *flowState) update(total int64) bool {
	o.m.Lock()
	defer o.m.Unlock()

	if o.p {
		if total <= o.l {
			o.p = false
		}
	} else {
		if total >= o.h {
			o.p = true
		}
	}

	return o.p
}

func (o *flowState) paused() bool {
	o.m.Lock()
	defer o.m.Unlock()

	return o.p
}
