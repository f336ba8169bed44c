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

// Package channel implements the two transports a Connection pairs: the
// length-prefixed reliable stream channel (§4.2) and the unframed datagram
// channel (§4.3).
package channel

import (
	"bytes"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabbar/netkit/netkitmetrics"
	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/serialize"
	"github.com/nabbar/netkit/wire"
)

// Reliable wraps a stream socket with frame-oriented send/receive, a
// bounded write buffer, and idle/last-activity accounting.
type Reliable struct {
	conn   net.Conn
	ser    serialize.Serialization
	objLen int

	wmu    sync.Mutex
	wbuf   bytes.Buffer
	wcap   int
	notify chan struct{}

	lastRecv atomic.Int64 // unix nano
	lastSend atomic.Int64
}

// NewReliable builds a Reliable channel over conn. objLen bounds a single
// frame's payload; writeBufLen bounds the staging buffer drained by Drain.
func NewReliable(conn net.Conn, ser serialize.Serialization, objLen, writeBufLen int) *Reliable {
	r := &Reliable{
		conn:   conn,
		ser:    ser,
		objLen: objLen,
		wcap:   writeBufLen,
		notify: make(chan struct{}, 1),
	}
	now := time.Now().UnixNano()
	r.lastRecv.Store(now)
	r.lastSend.Store(now)
	return r
}

// Notify returns the channel signaled whenever Send adds bytes the writer
// goroutine (Drain) should flush.
func (r *Reliable) Notify() <-chan struct{} {
	return r.notify
}

func (r *Reliable) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Send frames and stages obj on the write buffer. It never blocks on the
// socket: the actual write happens the next time Drain runs. Returns the
// number of bytes staged (post-framing), or BufferOverflow if the serialized
// object exceeds the object buffer or the staging buffer lacks room.
func (r *Reliable) Send(obj any) (int, error) {
	var payload bytes.Buffer
	if err := r.ser.Write(&payload, obj); err != nil {
		return 0, err
	}
	if payload.Len() > r.objLen {
		return 0, netkiterr.New(netkiterr.BufferOverflow, "serialized size %d exceeds object buffer %d", payload.Len(), r.objLen)
	}

	var prefix [wire.MaxVarintLen]byte
	n := wire.PutUvarint(prefix[:], uint32(payload.Len()))
	total := n + payload.Len()

	r.wmu.Lock()
	defer r.wmu.Unlock()

	if r.wbuf.Len()+total > r.wcap {
		return 0, netkiterr.New(netkiterr.BufferOverflow, "write buffer has %d of %d bytes free, frame needs %d", r.wcap-r.wbuf.Len(), r.wcap, total)
	}

	r.wbuf.Write(prefix[:n])
	r.wbuf.Write(payload.Bytes())
	r.wake()

	return total, nil
}

// SendKeepAlive stages an empty-payload frame, ignored by listeners on the
// receiving side, used to hold a connection open across idle periods.
func (r *Reliable) SendKeepAlive() error {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if 1 > r.wcap-r.wbuf.Len() {
		return netkiterr.New(netkiterr.BufferOverflow, "no room for keep-alive frame")
	}
	r.wbuf.WriteByte(0)
	r.wake()
	return nil
}

// Drain writes any staged bytes to the socket. It is meant to be called
// from the connection's single writer goroutine; it is the Go translation
// of "the reactor drains the write buffer whenever the socket is writable".
func (r *Reliable) Drain() (int, error) {
	r.wmu.Lock()
	if r.wbuf.Len() == 0 {
		r.wmu.Unlock()
		return 0, nil
	}
	data := make([]byte, r.wbuf.Len())
	copy(data, r.wbuf.Bytes())
	r.wbuf.Reset()
	r.wmu.Unlock()

	n, err := r.conn.Write(data)
	if err != nil {
		return n, netkiterr.Wrap(netkiterr.IoError, err, "writing to socket")
	}
	r.lastSend.Store(time.Now().UnixNano())
	netkitmetrics.BytesSent.Add(float64(n))
	return n, nil
}

// LastSend returns the time of the most recent successful Drain.
func (r *Reliable) LastSend() time.Time {
	return time.Unix(0, r.lastSend.Load())
}

// LastRecv returns the time of the most recent successfully parsed frame.
func (r *Reliable) LastRecv() time.Time {
	return time.Unix(0, r.lastRecv.Load())
}

// BufferFreeRatio reports the fraction of the write buffer currently free,
// used by Connection to raise the idle event.
func (r *Reliable) BufferFreeRatio() float64 {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if r.wcap == 0 {
		return 1
	}
	return float64(r.wcap-r.wbuf.Len()) / float64(r.wcap)
}

// Close closes the underlying socket.
func (r *Reliable) Close() error {
	return r.conn.Close()
}

// RemoteAddr exposes the socket's remote address for logging/metrics.
func (r *Reliable) RemoteAddr() net.Addr {
	return r.conn.RemoteAddr()
}

// ReadLoop accumulates bytes from the socket and invokes onFrame for every
// complete frame, in arrival order, until the socket errors or ctx-like stop
// is requested via Close. It is meant to run on its own goroutine, one per
// connection, so per-connection dispatch is always sequential (§4.5).
func (r *Reliable) ReadLoop(onFrame func(obj any) error, onFatal func(error)) {
	buf := make([]byte, 0, r.objLen+wire.MaxVarintLen)
	chunk := make([]byte, 4096)

	for {
		n, err := r.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			r.lastRecv.Store(time.Now().UnixNano())
			netkitmetrics.BytesReceived.Add(float64(n))

			for {
				length, consumed := wire.Uvarint(buf)
				if consumed == 0 {
					break
				}
				if consumed < 0 {
					onFatal(netkiterr.New(netkiterr.ProtocolError, "length prefix exceeds %d bytes", wire.MaxVarintLen))
					return
				}
				if int(length) > r.objLen {
					onFatal(netkiterr.New(netkiterr.FrameTooLarge, "incoming frame of %d bytes exceeds object buffer %d", length, r.objLen))
					return
				}
				if len(buf) < consumed+int(length) {
					break
				}

				payload := buf[consumed : consumed+int(length)]

				var obj any
				var decErr error
				if length > 0 {
					// Decode before compacting: the compaction below
					// copies the tail back over buf's front and can
					// overlap and overwrite this payload's bytes.
					obj, decErr = r.ser.Read(bytes.NewReader(payload))
				}

				buf = append(buf[:0], buf[consumed+int(length):]...)

				if length == 0 {
					continue // keep-alive frame, ignored by listeners
				}
				if decErr != nil {
					netkitmetrics.FramesDropped.WithLabelValues("serialization").Inc()
					continue
				}
				if err := onFrame(obj); err != nil {
					onFatal(err)
					return
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				onFatal(netkiterr.Wrap(netkiterr.PeerClosed, err, "peer closed the reliable channel"))
			} else {
				onFatal(netkiterr.Wrap(netkiterr.IoError, err, "reading from socket"))
			}
			return
		}
	}
}
