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

// Package listener implements the callback dispatch fabric (§4.6): a base
// no-op listener, a type-routing listener, and composable queued/threaded/
// lag wrappers.
package listener

// Conn is the minimal surface a listener needs from a Connection, kept
// small here to avoid an import cycle with package connection.
type Conn interface {
	ID() int32
}

// Listener is the application callback sink for one connection's events.
// The ordering guarantee in §4.6 holds for every variant below: Connected
// strictly precedes any Received, which strictly precedes Disconnected.
type Listener interface {
	Connected(c Conn)
	Disconnected(c Conn)
	Received(c Conn, obj any)
	Idle(c Conn)
}

// Base is embeddable in concrete listeners so they only need to override
// the callbacks they care about.
type Base struct{}

func (Base) Connected(Conn)     {}
func (Base) Disconnected(Conn)  {}
func (Base) Received(Conn, any) {}
func (Base) Idle(Conn)          {}

var _ Listener = Base{}
