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

package listener_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/netkit/listener"
)

type tallyListener struct {
	listener.Base
	mu    *sync.Mutex
	tally map[int]int
}

func (t *tallyListener) Received(_ listener.Conn, obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tally[obj.(int)]++
}

var _ = Describe("Type listener", func() {
	It("dispatches by registered type and overwrites on duplicate registration", func() {
		t := listener.NewType()
		Expect(t.Size()).To(Equal(0))

		var first, second int
		t.AddTypeHandler("", func(listener.Conn, any) { first++ })
		t.AddTypeHandler("", func(listener.Conn, any) { second++ })
		Expect(t.Size()).To(Equal(1))

		t.Received(fakeConn{id: 1}, "hello")
		Expect(first).To(Equal(0))
		Expect(second).To(Equal(1))
	})

	It("silently drops unregistered types", func() {
		t := listener.NewType()
		Expect(func() { t.Received(fakeConn{id: 1}, 42) }).ToNot(Panic())
	})

	It("removes and clears handlers", func() {
		t := listener.NewType()
		t.AddTypeHandler(0, func(listener.Conn, any) {})
		t.AddTypeHandler("", func(listener.Conn, any) {})
		Expect(t.Size()).To(Equal(2))

		t.RemoveTypeHandler(0)
		Expect(t.Size()).To(Equal(1))

		t.Clear()
		Expect(t.Size()).To(Equal(0))
	})
})

var _ = Describe("Threaded listener", func() {
	It("preserves order when size is 1", func() {
		rec := &recorder{}
		q := listener.Threaded(rec, 1)
		conn := fakeConn{id: 1}

		const n = 100
		for i := 0; i < n; i++ {
			q.Received(conn, i)
		}

		Eventually(func() int { return len(rec.snapshot()) }, 2*time.Second).Should(Equal(n))
		seen := rec.snapshot()
		for i, v := range seen {
			Expect(v).To(Equal(i))
		}
	})

	It("delivers every item exactly once when size > 1, regardless of order", func() {
		var mu sync.Mutex
		tally := make(map[int]int)
		q := listener.Threaded(&tallyListener{tally: tally, mu: &mu}, 4)
		conn := fakeConn{id: 1}

		const n = 40
		for i := 0; i < n; i++ {
			q.Received(conn, i)
		}

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(tally)
		}, 2*time.Second).Should(Equal(n))

		mu.Lock()
		defer mu.Unlock()
		for i := 0; i < n; i++ {
			Expect(tally[i]).To(Equal(1))
		}
	})
})
