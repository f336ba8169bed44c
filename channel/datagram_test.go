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

package channel_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/netkit/channel"
	"github.com/nabbar/netkit/netkiterr"
)

var _ = Describe("Datagram channel", func() {
	It("fails to send before a peer is bound", func() {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()

		ser, _ := newSerializers()
		d := channel.NewDatagram(conn, ser, 1500)

		_, err = d.Send(greeting{Text: "hi"})
		Expect(err).To(HaveOccurred())
		Expect(err.(netkiterr.Error).IsCode(netkiterr.DatagramUnsent)).To(BeTrue())
	})

	It("delivers a datagram round-trip once a peer is bound", func() {
		srvConn, err := net.ListenPacket("udp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer srvConn.Close()

		cliConn, err := net.ListenPacket("udp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer cliConn.Close()

		serSrv, serCli := newSerializers()
		srv := channel.NewDatagram(srvConn, serSrv, 1500)
		cli := channel.NewDatagram(cliConn, serCli, 1500)
		cli.BindPeer(srvConn.LocalAddr())

		received := make(chan any, 1)
		go srv.ReadLoop(func(obj any, src net.Addr) {
			srv.BindPeer(src)
			received <- obj
		}, func(error) {})

		_, err = cli.Send(greeting{Text: "ping"})
		Expect(err).ToNot(HaveOccurred())

		Eventually(received, time.Second).Should(Receive(Equal(greeting{Text: "ping"})))
	})

	It("does not rebind the peer once set", func() {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()

		d := channel.NewDatagram(conn, nil, 1500)
		first := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1111}
		second := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2222}

		d.BindPeer(first)
		d.BindPeer(second)

		Expect(d.Peer()).To(Equal(first))
	})
})
