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
	"bytes"
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/nabbar/netkit/channel"
	"github.com/nabbar/netkit/connection"
	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/netkitlog"
	"github.com/nabbar/netkit/serialize"
)

// Server is the accept-side endpoint: one loop goroutine running Listen
// owns the listening socket and, if configured, the shared datagram
// socket's demultiplexing loop. Every accepted Connection gets its own
// reader/writer/monitor goroutines from package connection (§4.5, §9).
type Server struct {
	cfg netkitcfg.Endpoint
	ser serialize.Serialization

	ln  net.Listener
	pkt net.PacketConn

	nextID  atomic.Int32
	running atomic.Bool

	mu      sync.RWMutex
	conns   map[int32]*connection.Connection
	addrIdx map[string]int32

	listMu    sync.Mutex
	globalLis []listener.Listener
}

// NewServer builds a Server bound to cfg.ReliableAddr (and, if set,
// cfg.DatagramAddr) but does not start accepting until Listen runs.
func NewServer(ser serialize.Serialization, cfg netkitcfg.Endpoint) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.ReliableAddr)
	if err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "listen %s", cfg.ReliableAddr)
	}

	var pkt net.PacketConn
	if cfg.DatagramAddr != "" {
		pkt, err = net.ListenPacket("udp", cfg.DatagramAddr)
		if err != nil {
			_ = ln.Close()
			return nil, netkiterr.Wrap(netkiterr.IoError, err, "listen udp %s", cfg.DatagramAddr)
		}
	}

	return &Server{
		cfg:     cfg,
		ser:     ser,
		ln:      ln,
		pkt:     pkt,
		conns:   make(map[int32]*connection.Connection),
		addrIdx: make(map[string]int32),
	}, nil
}

// Addr returns the bound reliable-channel listening address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// IsRunning reports whether Listen is currently serving.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// OpenConnections returns the number of connections not yet Closed.
func (s *Server) OpenConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// AddListener registers l on every connection accepted from now on, and
// on every connection currently open.
func (s *Server) AddListener(l listener.Listener) {
	s.listMu.Lock()
	s.globalLis = append(s.globalLis, l)
	s.listMu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		c.AddListener(l)
	}
}

func (s *Server) snapshotGlobalListeners() []listener.Listener {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	out := make([]listener.Listener, len(s.globalLis))
	copy(out, s.globalLis)
	return out
}

// Listen runs the accept loop until ctx is done or the listener errors. It
// is the Go translation of the endpoint's Selector loop (§4.5, §9): one
// owning goroutine per endpoint, with per-connection work delegated to
// connection.Connection's own goroutines.
func (s *Server) Listen(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	if s.pkt != nil {
		go s.demuxDatagrams()
	}

	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
		if s.pkt != nil {
			_ = s.pkt.Close()
		}
	}()

	for {
		raw, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return netkiterr.Wrap(netkiterr.IoError, err, "accept on %s", s.ln.Addr())
		}
		go s.handleAccept(raw)
	}
}

// Shutdown closes the listening and datagram sockets and every open
// connection.
func (s *Server) Shutdown() error {
	err := s.ln.Close()
	if s.pkt != nil {
		_ = s.pkt.Close()
	}

	s.mu.RLock()
	conns := make([]*connection.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return err
}

func (s *Server) handleAccept(raw net.Conn) {
	id := s.nextID.Add(1)
	r := channel.NewReliable(raw, s.ser, s.cfg.ObjectBufferLen, s.cfg.WriteBufferLen)
	c := connection.New(id, r, s.cfg)

	for _, l := range s.snapshotGlobalListeners() {
		c.AddListener(l)
	}

	c.Serve(func(conn *connection.Connection, obj any) error {
		return conn.Deliver(obj)
	})

	if s.pkt != nil {
		c.BindDatagram(channel.NewDatagram(sharedPacketConn{s.pkt}, s.ser, s.cfg.ObjectBufferLen))
	}

	s.mu.Lock()
	s.conns[id] = c
	s.mu.Unlock()

	s.watchClose(id, c)

	if _, err := r.Send(registerTCP{ConnectionID: id}); err != nil {
		netkitlog.Logf(netkitlog.ErrorLevel, "connection %d: failed to stage handshake frame: %v", id, err)
		_ = c.Close()
		return
	}

	c.MarkConnected(id)
}

// sharedPacketConn hands a connection the server's shared UDP socket; its
// Close is a no-op, so closing one connection leaves the socket open for
// the others. Listen and Shutdown close the socket itself.
type sharedPacketConn struct {
	net.PacketConn
}

func (sharedPacketConn) Close() error { return nil }

// watchClose registers an internal listener that removes id from the
// server's bookkeeping maps once the connection disconnects; it does not
// participate in the application-visible listener ordering guarantee since
// it carries no application behavior.
func (s *Server) watchClose(id int32, c *connection.Connection) {
	c.AddListener(&cleanupListener{srv: s, id: id, conn: c})
}

type cleanupListener struct {
	listener.Base
	srv  *Server
	id   int32
	conn *connection.Connection
}

func (cl *cleanupListener) Disconnected(listener.Conn) {
	cl.srv.mu.Lock()
	defer cl.srv.mu.Unlock()
	delete(cl.srv.conns, cl.id)
	if d := cl.conn.Datagram(); d != nil {
		if peer := d.Peer(); peer != nil {
			delete(cl.srv.addrIdx, peer.String())
		}
	}
}

// demuxDatagrams reads the shared UDP socket: a registerUDP payload binds
// its connection id's datagram peer; any other payload is routed to the
// connection already bound to its source address (§4.3, §4.5 handshake).
func (s *Server) demuxDatagrams() {
	buf := make([]byte, s.cfg.ObjectBufferLen)
	for {
		n, src, err := s.pkt.ReadFrom(buf)
		if err != nil {
			return
		}

		obj, err := s.ser.Read(bytes.NewReader(buf[:n]))
		if err != nil {
			continue
		}

		if reg, ok := obj.(registerUDP); ok {
			s.mu.RLock()
			c := s.conns[reg.ConnectionID]
			s.mu.RUnlock()
			if c == nil {
				continue
			}
			if d := c.Datagram(); d != nil {
				d.BindPeer(src)
				if p := d.Peer(); p != nil && p.String() == src.String() {
					s.mu.Lock()
					s.addrIdx[src.String()] = reg.ConnectionID
					s.mu.Unlock()
				}
			}
			continue
		}

		s.mu.RLock()
		id, bound := s.addrIdx[src.String()]
		var c *connection.Connection
		if bound {
			c = s.conns[id]
		}
		s.mu.RUnlock()

		if c != nil {
			_ = c.Deliver(obj)
		}
	}
}
