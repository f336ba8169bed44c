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

package listener

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Sink is where a Queued listener hands off each dispatched closure. The
// sink decides when and on what goroutine the closure actually runs.
type Sink interface {
	Enqueue(fn func())
}

// Queued wraps a delegate Listener so every callback is enqueued onto a
// sink instead of running inline. This replaces the teacher's mixin
// hierarchy (Queued/Threaded/Lag all extending one base class) with plain
// composition: the sink is the only thing that varies (§9).
type Queued struct {
	delegate Listener
	sink     Sink
}

// NewQueued builds a Queued listener delegating to delegate via sink.
func NewQueued(delegate Listener, sink Sink) *Queued {
	return &Queued{delegate: delegate, sink: sink}
}

func (q *Queued) Connected(c Conn) {
	q.sink.Enqueue(func() { q.delegate.Connected(c) })
}

func (q *Queued) Disconnected(c Conn) {
	q.sink.Enqueue(func() { q.delegate.Disconnected(c) })
}

func (q *Queued) Received(c Conn, obj any) {
	q.sink.Enqueue(func() { q.delegate.Received(c, obj) })
}

func (q *Queued) Idle(c Conn) {
	q.sink.Enqueue(func() { q.delegate.Idle(c) })
}

var _ Listener = (*Queued)(nil)

// synchronousSink runs every closure inline; it exists so Queued can be
// used as a no-op pass-through in tests.
type synchronousSink struct{}

func (synchronousSink) Enqueue(fn func()) { fn() }

// NewSynchronous wraps delegate in a Queued listener whose sink runs
// inline — useful as a baseline/no-op composition.
func NewSynchronous(delegate Listener) *Queued {
	return NewQueued(delegate, synchronousSink{})
}

// pooledSink runs closures on a fixed-size worker pool built on
// golang.org/x/sync/semaphore. Ordering within one connection is only
// preserved when size == 1 (§4.6).
type pooledSink struct {
	sem *semaphore.Weighted
}

func (p *pooledSink) Enqueue(fn func()) {
	_ = p.sem.Acquire(context.Background(), 1)
	go func() {
		defer p.sem.Release(1)
		fn()
	}()
}

// Threaded builds a Queued listener whose sink runs closures on up to
// size concurrent goroutines (default 1, the ordering-preserving case).
func Threaded(delegate Listener, size int) *Queued {
	if size < 1 {
		size = 1
	}
	return NewQueued(delegate, &pooledSink{sem: semaphore.NewWeighted(int64(size))})
}
