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

package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nabbar/netkit/connection"
	"github.com/nabbar/netkit/discovery"
	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitmetrics"
	"github.com/nabbar/netkit/reactor"
	"github.com/nabbar/netkit/rmi"
)

// Echo is the one RMI service netkitctl exposes, so `connect --rmi` has
// something to call without needing a second binary.
type Echo interface {
	Say(msg string) string
}

type echoImpl struct{}

func (echoImpl) Say(msg string) string { return msg }

var echoType = reflect.TypeOf((*Echo)(nil)).Elem()

var metricsAddr string

type echoListener struct {
	listener.Base
}

func (echoListener) Connected(c listener.Conn) {
	logInfof("connection %d connected", c.ID())
}

func (echoListener) Disconnected(c listener.Conn) {
	logInfof("connection %d disconnected", c.ID())
}

func (echoListener) Received(c listener.Conn, obj any) {
	conn, ok := c.(*connection.Connection)
	if !ok {
		return
	}
	msg, ok := obj.(ChatMessage)
	if !ok {
		return
	}
	logInfof("connection %d: echoing %q", c.ID(), msg.Text)
	_, _ = conn.SendTCP(msg)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a netkit server: echoes application messages and exposes an RMI Echo object",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := endpointConfig()
		if err != nil {
			return err
		}

		ser, err := buildSerializer(cfg)
		if err != nil {
			return err
		}

		srv, err := reactor.NewServer(ser, cfg)
		if err != nil {
			return err
		}
		srv.AddListener(echoListener{})

		space := rmi.NewObjectSpace(1)
		space.Register(echoType, echoImpl{})
		srv.AddListener(&rmiAttachListener{space: space})

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if metricsAddr != "" {
			go func() { _ = http.ListenAndServe(metricsAddr, netkitmetrics.Handler()) }()
			logInfof("metrics listening on %s", metricsAddr)
		}

		if cfg.DiscoveryAddr != "" {
			// instanceID lets a probing client tell apart several netkitctl
			// servers answering on the same broadcast domain.
			instanceID := uuid.New().String()
			payload := []byte(fmt.Sprintf("netkitctl:%s", instanceID))
			go func() { _ = discovery.Responder(ctx, cfg, payload) }()
			logInfof("discovery responder %s listening on %s", instanceID, cfg.DiscoveryAddr)
		}

		logInfof("serving on %s (datagram %s)", cfg.ReliableAddr, cfg.DatagramAddr)
		return srv.Listen(ctx)
	},
}

// rmiAttachListener attaches space to every connection as it's accepted, so
// an RMI call can arrive on the very first frame after the handshake.
type rmiAttachListener struct {
	listener.Base
	space *rmi.ObjectSpace
}

func (r *rmiAttachListener) Connected(c listener.Conn) {
	conn, ok := c.(*connection.Connection)
	if !ok {
		return
	}
	r.space.Attach(conn)
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	rootCmd.AddCommand(serveCmd)
}
