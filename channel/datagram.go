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

package channel

import (
	"bytes"
	"net"
	"sync"

	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/serialize"
)

// Datagram wraps a single unreliable, unordered packet transport. The peer
// address binds once (first writer on the server side, connect-time on the
// client side) and never rebinds (§9 design note).
type Datagram struct {
	conn   net.PacketConn
	ser    serialize.Serialization
	bufLen int

	mu   sync.RWMutex
	peer net.Addr
}

// NewDatagram builds a Datagram channel over conn, bounding payloads to
// bufLen bytes.
func NewDatagram(conn net.PacketConn, ser serialize.Serialization, bufLen int) *Datagram {
	return &Datagram{conn: conn, ser: ser, bufLen: bufLen}
}

// Peer returns the currently bound peer address, or nil if unbound.
func (d *Datagram) Peer() net.Addr {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.peer
}

// BindPeer binds the peer address the first time it's called; subsequent
// calls with a different address are ignored so a spoofed or stray datagram
// cannot hijack an already-bound peer.
func (d *Datagram) BindPeer(addr net.Addr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.peer == nil {
		d.peer = addr
	}
}

// Send serializes obj and sends it, unframed, to the bound peer. Failures
// are transient and are never retried (§4.3).
func (d *Datagram) Send(obj any) (int, error) {
	peer := d.Peer()
	if peer == nil {
		return 0, netkiterr.New(netkiterr.DatagramUnsent, "no datagram peer bound yet")
	}

	var payload bytes.Buffer
	if err := d.ser.Write(&payload, obj); err != nil {
		return 0, err
	}
	if payload.Len() > d.bufLen {
		return 0, netkiterr.New(netkiterr.DatagramUnsent, "serialized size %d exceeds datagram buffer %d", payload.Len(), d.bufLen)
	}

	n, err := d.conn.WriteTo(payload.Bytes(), peer)
	if err != nil {
		return 0, netkiterr.Wrap(netkiterr.DatagramUnsent, err, "sendto %s", peer)
	}
	return n, nil
}

// SendRaw sends an opaque, unserialized payload to addr — used by discovery,
// which must work without any class registration (§4.7).
func (d *Datagram) SendRaw(payload []byte, addr net.Addr) (int, error) {
	n, err := d.conn.WriteTo(payload, addr)
	if err != nil {
		return 0, netkiterr.Wrap(netkiterr.DatagramUnsent, err, "sendto %s", addr)
	}
	return n, nil
}

// ReadLoop receives datagrams until the socket errors, handing each decoded
// object plus its source address to onPacket.
func (d *Datagram) ReadLoop(onPacket func(obj any, src net.Addr), onFatal func(error)) {
	buf := make([]byte, d.bufLen)
	for {
		n, src, err := d.conn.ReadFrom(buf)
		if err != nil {
			onFatal(netkiterr.Wrap(netkiterr.IoError, err, "reading datagram socket"))
			return
		}
		obj, err := d.ser.Read(bytes.NewReader(buf[:n]))
		if err != nil {
			continue
		}
		onPacket(obj, src)
	}
}

// Close closes the underlying packet socket.
func (d *Datagram) Close() error {
	return d.conn.Close()
}
