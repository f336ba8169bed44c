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

package discovery_test

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/netkit/discovery"
	"github.com/nabbar/netkit/netkitcfg"
)

func TestDiscovery(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "discovery suite")
}

// unicastConfig returns an Endpoint whose DiscoveryAddr is a concrete
// loopback port, so tests never depend on the sandbox allowing
// SO_BROADCAST writes to 255.255.255.255.
func unicastConfig() netkitcfg.Endpoint {
	cfg := netkitcfg.DefaultEndpoint()
	cfg.DiscoveryAddr = "127.0.0.1:0"
	return cfg
}

var _ = Describe("Responder", func() {
	It("answers a magic-byte probe with its payload and ignores anything else", func() {
		listener, err := net.ListenPacket("udp4", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		port := listener.LocalAddr().(*net.UDPAddr).Port
		Expect(listener.Close()).To(Succeed())

		cfg := unicastConfig()
		cfg.DiscoveryAddr = "127.0.0.1:" + itoa(port)
		cfg.DiscoveryMagic = 0x4B

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() { _ = discovery.Responder(ctx, cfg, []byte("hello netkit")) }()

		client, err := net.ListenPacket("udp4", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer client.Close()
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

		serverAddr, err := net.ResolveUDPAddr("udp4", cfg.DiscoveryAddr)
		Expect(err).ToNot(HaveOccurred())

		// Retry the first write until the local socket accepts it; a UDP
		// write does not report whether the responder has bound yet.
		Eventually(func() error {
			_, err := client.WriteTo([]byte{0xFF}, serverAddr)
			return err
		}, time.Second).Should(Succeed())

		// Non-magic byte: must be silently ignored.
		_, err = client.WriteTo([]byte{0xFF}, serverAddr)
		Expect(err).ToNot(HaveOccurred())

		_, err = client.WriteTo([]byte{cfg.DiscoveryMagic}, serverAddr)
		Expect(err).ToNot(HaveOccurred())

		buf := make([]byte, 64)
		n, _, err := client.ReadFrom(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("hello netkit"))
	})
})

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
