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

package reactor

import (
	"context"
	"net"
	"sync"

	"github.com/nabbar/netkit/channel"
	"github.com/nabbar/netkit/connection"
	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/netkitlog"
	"github.com/nabbar/netkit/serialize"
)

// Client is the dial-side endpoint. Connect owns the handshake and returns
// an established Connection; there is no separate Update loop on the
// client side since a single connection needs no endpoint-wide multiplex —
// its reader/writer/monitor goroutines (package connection) are the whole
// of its "loop".
type Client struct {
	ser serialize.Serialization
	cfg netkitcfg.Endpoint
}

// NewClient builds a Client that will dial cfg.ReliableAddr (and, if set,
// cfg.DatagramAddr) on Connect.
func NewClient(ser serialize.Serialization, cfg netkitcfg.Endpoint) *Client {
	return &Client{ser: ser, cfg: cfg}
}

// Connect dials the reliable channel, waits for the server's RegisterTCP
// handshake frame (or ctx to be done), and — if a datagram address is
// configured — binds a datagram channel and sends RegisterUDP so the
// server learns this client's peer address (§4.5).
func (cl *Client) Connect(ctx context.Context, listeners ...listener.Listener) (*connection.Connection, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", cl.cfg.ReliableAddr)
	if err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "dial %s", cl.cfg.ReliableAddr)
	}

	r := channel.NewReliable(raw, cl.ser, cl.cfg.ObjectBufferLen, cl.cfg.WriteBufferLen)
	c := connection.New(0, r, cl.cfg)
	for _, l := range listeners {
		c.AddListener(l)
	}

	handshakeDone := make(chan struct{})
	var once sync.Once

	c.Serve(func(conn *connection.Connection, obj any) error {
		if reg, ok := obj.(registerTCP); ok {
			conn.MarkConnected(reg.ConnectionID)
			once.Do(func() { close(handshakeDone) })
			return nil
		}
		return conn.Deliver(obj)
	})

	var pkt net.PacketConn
	if cl.cfg.DatagramAddr != "" {
		pkt, err = net.ListenPacket("udp", "0.0.0.0:0")
		if err != nil {
			netkitlog.Logf(netkitlog.WarnLevel, "client: failed to open datagram socket: %v", err)
		} else if udpAddr, rerr := net.ResolveUDPAddr("udp", cl.cfg.DatagramAddr); rerr != nil {
			netkitlog.Logf(netkitlog.WarnLevel, "client: bad datagram address %q: %v", cl.cfg.DatagramAddr, rerr)
			_ = pkt.Close()
			pkt = nil
		} else {
			dch := channel.NewDatagram(pkt, cl.ser, cl.cfg.ObjectBufferLen)
			dch.BindPeer(udpAddr)
			c.BindDatagram(dch)
			go dch.ReadLoop(func(obj any, _ net.Addr) { _ = c.Deliver(obj) }, func(error) {})
		}
	}

	select {
	case <-handshakeDone:
	case <-ctx.Done():
		_ = c.Close()
		return nil, netkiterr.Wrap(netkiterr.Timeout, ctx.Err(), "handshake with %s did not complete", cl.cfg.ReliableAddr)
	}

	if pkt != nil {
		if _, err := c.SendUDP(registerUDP{ConnectionID: c.ID()}); err != nil {
			netkitlog.Logf(netkitlog.WarnLevel, "connection %d: failed to send udp register: %v", c.ID(), err)
		}
	}

	return c, nil
}
