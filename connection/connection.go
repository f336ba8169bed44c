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
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabbar/netkit/channel"
	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/netkitlog"
	"github.com/nabbar/netkit/netkitmetrics"
)

// Connection pairs a reliable channel with an optional datagram channel
// under one identity, ordered listener set, and idle/timeout/keep-alive
// accounting (§4.4). It is role-agnostic: the reactor decides when a
// handshake completes and calls MarkConnected; everything else here behaves
// identically on the client and the server side.
type Connection struct {
	id    atomic.Int32
	state atomicState

	reliable *channel.Reliable
	datagram atomic.Pointer[channel.Datagram]

	listeners atomic.Pointer[[]listener.Listener]
	listMu    sync.Mutex // serializes AddListener/RemoveListener snapshot swaps

	idleBits  atomic.Uint64 // math.Float64bits(idleThreshold)
	timeout   atomic.Int64  // time.Duration
	keepAlive atomic.Int64  // time.Duration

	closeOnce sync.Once
	stopCh    chan struct{}
}

// New builds a Connection over reliable, in Connecting state. id is 0 until
// MarkConnected assigns one (the common case for a client dialing before the
// handshake completes); a server that already knows the id at accept time
// may pass it directly.
func New(id int32, reliable *channel.Reliable, cfg netkitcfg.Endpoint) *Connection {
	c := &Connection{reliable: reliable, stopCh: make(chan struct{})}
	c.id.Store(id)
	c.state.store(Connecting)
	c.idleBits.Store(math.Float64bits(cfg.IdleThreshold))
	c.timeout.Store(int64(cfg.Timeout))
	c.keepAlive.Store(int64(cfg.KeepAlive))
	empty := []listener.Listener{}
	c.listeners.Store(&empty)
	return c
}

// ID returns the connection identity. It is zero until an id is assigned,
// either at construction or by MarkConnected, and is kept after Close; a
// non-zero id does not by itself mean the connection is Connected.
func (c *Connection) ID() int32 {
	return c.id.Load()
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return c.state.load()
}

// RemoteAddr exposes the reliable channel's remote address for logging.
func (c *Connection) RemoteAddr() net.Addr {
	return c.reliable.RemoteAddr()
}

// BindDatagram attaches the datagram channel once the reactor has created
// it (server: at accept time, with the peer bound later by the UDP register
// frame; client: at dial time if a datagram address was configured).
func (c *Connection) BindDatagram(d *channel.Datagram) {
	c.datagram.Store(d)
}

// Datagram returns the bound datagram channel, or nil if none is attached
// yet. Used by the reactor to bind the peer address once the UDP register
// frame arrives.
func (c *Connection) Datagram() *channel.Datagram {
	return c.datagram.Load()
}

// SetIdleThreshold sets the write-buffer free ratio above which Idle fires.
func (c *Connection) SetIdleThreshold(fraction float64) {
	c.idleBits.Store(math.Float64bits(fraction))
}

func (c *Connection) idleThreshold() float64 {
	return math.Float64frombits(c.idleBits.Load())
}

// SetTimeout sets the receive-silence interval after which the connection
// is closed with Timeout. Zero disables the check.
func (c *Connection) SetTimeout(d time.Duration) {
	c.timeout.Store(int64(d))
}

// SetKeepAlive sets the send-silence interval after which an empty
// keep-alive frame is written. Zero disables keep-alives.
func (c *Connection) SetKeepAlive(d time.Duration) {
	c.keepAlive.Store(int64(d))
}

// AddListener appends l to the ordered listener set. Safe from any
// goroutine; takes effect on the next dispatch cycle (copy-on-read).
func (c *Connection) AddListener(l listener.Listener) {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	cur := *c.listeners.Load()
	next := make([]listener.Listener, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, l)
	c.listeners.Store(&next)
}

// RemoveListener removes every occurrence of l, if present.
func (c *Connection) RemoveListener(l listener.Listener) {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	cur := *c.listeners.Load()
	next := make([]listener.Listener, 0, len(cur))
	for _, existing := range cur {
		if existing != l {
			next = append(next, existing)
		}
	}
	c.listeners.Store(&next)
}

func (c *Connection) snapshot() []listener.Listener {
	return *c.listeners.Load()
}

// SendTCP frames and stages obj on the reliable channel's write buffer.
func (c *Connection) SendTCP(obj any) (int, error) {
	if c.State() == Closed {
		return 0, netkiterr.New(netkiterr.PeerClosed, "connection %d is closed", c.ID())
	}
	return c.reliable.Send(obj)
}

// SendUDP datagram-sends obj; fails if no datagram channel is bound yet.
func (c *Connection) SendUDP(obj any) (int, error) {
	d := c.datagram.Load()
	if d == nil {
		return 0, netkiterr.New(netkiterr.DatagramUnsent, "no datagram channel bound on connection %d", c.ID())
	}
	return d.Send(obj)
}

// MarkConnected assigns id (if non-zero and not already set) and
// transitions Connecting -> Connected, firing Connected on every listener.
// Calling it more than once, or after Close, has no further effect.
func (c *Connection) MarkConnected(id int32) {
	if c.State() != Connecting {
		return
	}
	if id != 0 {
		c.id.CompareAndSwap(0, id)
	}
	if !compareAndSwapState(&c.state, Connecting, Connected) {
		return
	}
	netkitmetrics.ConnectionsOpened.Inc()
	netkitlog.Logf(netkitlog.InfoLevel, "connection %d connected", c.ID())
	for _, l := range c.snapshot() {
		l.Connected(c)
	}
}

// Deliver dispatches a decoded application object to Received on every
// listener, in arrival order. Frames arriving before Connected (i.e. still
// part of the handshake) must not reach here — the reactor is responsible
// for routing those to its handshake handler instead.
func (c *Connection) Deliver(obj any) error {
	if c.State() != Connected {
		return nil
	}
	for _, l := range c.snapshot() {
		l.Received(c, obj)
	}
	return nil
}

// fireIdle dispatches Idle to every listener; called by the monitor loop
// when the write buffer's free ratio rises above the idle threshold.
func (c *Connection) fireIdle() {
	if c.State() != Connected {
		return
	}
	for _, l := range c.snapshot() {
		l.Idle(c)
	}
}

// Close performs an orderly teardown: closes the reliable socket and, if
// bound, the datagram channel, and fires Disconnected exactly once, regardless of
// whether Close was called explicitly or the reactor observed a read/write
// failure first.
func (c *Connection) Close() error {
	return c.fail(nil)
}

// fail transitions the connection to Closed and fires Disconnected exactly
// once; cause, if non-nil, is logged and used to label the closed-reason
// metric.
func (c *Connection) fail(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.state.store(Closed)
		close(c.stopCh)

		err = c.reliable.Close()
		if d := c.datagram.Load(); d != nil {
			_ = d.Close()
		}

		reason := "closed"
		if ce, ok := cause.(netkiterr.Error); ok {
			reason = ce.Code().String()
		} else if cause != nil {
			reason = "error"
		}
		netkitmetrics.ConnectionsClosed.WithLabelValues(reason).Inc()

		if cause != nil {
			netkitlog.WithFields(netkitlog.ConnFields(c.ID(), c.RemoteAddr().String())).
				Errorf("connection closed: %v", cause)
		} else {
			netkitlog.Logf(netkitlog.InfoLevel, "connection %d closed", c.ID())
		}

		for _, l := range c.snapshot() {
			l.Disconnected(c)
		}
	})
	return err
}

// compareAndSwapState performs a CAS on an atomicState, since atomic.Int32
// doesn't expose a typed helper.
func compareAndSwapState(a *atomicState, old, new State) bool {
	return a.v.CompareAndSwap(int32(old), int32(new))
}

var _ listener.Conn = (*Connection)(nil)
