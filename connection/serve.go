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

package connection

import (
	"time"

	"github.com/nabbar/netkit/netkiterr"
)

// monitorTick is how often the idle/timeout/keep-alive checks run; it is
// independent of any configured duration, since those can be much smaller
// or larger than is sensible to poll at directly.
const monitorTick = 50 * time.Millisecond

// FrameHandler routes a decoded object arriving on the reliable channel. The
// reactor supplies one that intercepts handshake frames before the
// connection reaches Connected and falls back to c.Deliver afterward; tests
// and simple embedders can pass c.Deliver directly.
type FrameHandler func(c *Connection, obj any) error

// Serve starts the reader goroutine, the writer goroutine and the
// idle/timeout/keep-alive monitor for this connection. It returns
// immediately; all three goroutines exit once
// the connection transitions to Closed. This is the per-connection half of
// the reactor's "one reader goroutine per connection, one dispatch queue
// per connection" design (§4.5, §9).
func (c *Connection) Serve(onFrame FrameHandler) {
	go c.reliable.ReadLoop(
		func(obj any) error { return onFrame(c, obj) },
		func(err error) { c.fail(err) },
	)
	go c.writeLoop()
	go c.monitor()
}

// writeLoop drains staged bytes to the socket whenever Send wakes the
// channel's notify signal. This is the Go translation of "the reactor
// drains the write buffer whenever the socket is writable" (§4.2) — one
// dedicated writer goroutine per connection instead of a multiplexed
// writable-set poll.
func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.reliable.Notify():
			if _, err := c.reliable.Drain(); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *Connection) monitor() {
	t := time.NewTicker(monitorTick)
	defer t.Stop()

	wasIdle := false

	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			if c.State() != Connected {
				continue
			}

			if timeout := time.Duration(c.timeout.Load()); timeout > 0 {
				if time.Since(c.reliable.LastRecv()) > timeout {
					c.fail(netkiterr.New(netkiterr.Timeout, "no data received for %s", timeout))
					return
				}
			}

			if ka := time.Duration(c.keepAlive.Load()); ka > 0 {
				if time.Since(c.reliable.LastSend()) > ka {
					_ = c.reliable.SendKeepAlive()
				}
			}

			idle := c.reliable.BufferFreeRatio() >= c.idleThreshold()
			if idle && !wasIdle {
				c.fireIdle()
			}
			wasIdle = idle
		}
	}
}
