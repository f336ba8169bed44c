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

package reactor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/netkit/connection"
	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/reactor"
)

func TestReactor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "reactor suite")
}

type echoMsg struct{ Text string }

func newEndpointConfig() netkitcfg.Endpoint {
	cfg := netkitcfg.DefaultEndpoint()
	cfg.ReliableAddr = "127.0.0.1:0"
	return cfg
}

type captureListener struct {
	listener.Base
	mu   sync.Mutex
	msgs []echoMsg
}

func (c *captureListener) Received(_ listener.Conn, obj any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, obj.(echoMsg))
}

func (c *captureListener) snapshot() []echoMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]echoMsg, len(c.msgs))
	copy(out, c.msgs)
	return out
}

type echoServerListener struct {
	listener.Base
}

func (echoServerListener) Received(c listener.Conn, obj any) {
	conn := c.(*connection.Connection)
	_, _ = conn.SendTCP(obj)
}

var _ = Describe("Server/Client handshake and echo", func() {
	It("completes the handshake and exchanges a typed message", func() {
		cfg := newEndpointConfig()
		ser := reactor.NewSerializer(1 << 16)
		_, _ = ser.RegisterType(echoMsg{})

		srv, err := reactor.NewServer(ser, cfg)
		Expect(err).ToNot(HaveOccurred())
		srv.AddListener(echoServerListener{})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = srv.Listen(ctx) }()

		Eventually(srv.IsRunning, time.Second).Should(BeTrue())

		clientCfg := cfg
		clientCfg.ReliableAddr = srv.Addr().String()
		cl := reactor.NewClient(ser, clientCfg)

		capt := &captureListener{}
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer connectCancel()
		conn, err := cl.Connect(connectCtx, capt)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn.ID()).To(BeNumerically(">", 0))
		Expect(conn.State()).To(Equal(connection.Connected))

		_, err = conn.SendTCP(echoMsg{Text: "ping"})
		Expect(err).ToNot(HaveOccurred())

		Eventually(capt.snapshot, 2*time.Second).Should(ContainElement(echoMsg{Text: "ping"}))

		Eventually(func() int { return srv.OpenConnections() }, time.Second).Should(Equal(1))
		_ = conn.Close()
		Eventually(func() int { return srv.OpenConnections() }, time.Second).Should(Equal(0))
	})

	It("fails Connect when the server is unreachable", func() {
		cfg := newEndpointConfig()
		cfg.ReliableAddr = "127.0.0.1:1" // reserved, nothing listens here
		ser := reactor.NewSerializer(1 << 16)
		cl := reactor.NewClient(ser, cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		_, err := cl.Connect(ctx)
		Expect(err).To(HaveOccurred())
	})
})
