/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package rmi

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/nabbar/netkit/netkiterr"
)

// maxResponseID is the largest response id on the wire: a 6-bit value, 0
// reserved to mean "no response expected" (§4.8).
const maxResponseID = 63

// responseAllocator hands out ids 1..63 on a rolling counter, skipping any
// id currently outstanding, tracked in a bits-and-blooms/bitset bitmask.
type responseAllocator struct {
	mu    sync.Mutex
	next  uint8
	inUse *bitset.BitSet
}

func newResponseAllocator() *responseAllocator {
	return &responseAllocator{inUse: bitset.New(maxResponseID + 1)}
}

// allocate reserves the next free id, or fails with RmiOverload once all 63
// are outstanding.
func (a *responseAllocator) allocate() (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := uint8(0); i < maxResponseID; i++ {
		id := a.next%maxResponseID + 1
		a.next++
		if !a.inUse.Test(uint(id)) {
			a.inUse.Set(uint(id))
			return id, nil
		}
	}
	return 0, netkiterr.New(netkiterr.RmiOverload, "no rmi response id available, all %d outstanding", maxResponseID)
}

// release frees id so a future allocate can reuse it. A zero id (no
// response expected) is a no-op.
func (a *responseAllocator) release(id uint8) {
	if id == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse.Clear(uint(id))
}
