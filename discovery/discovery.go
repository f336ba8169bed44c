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

// Package discovery implements LAN server discovery (§4.7): a client
// broadcasts a single magic byte and collects responses; a server replies
// with an application-supplied opaque payload. Neither side needs class
// registration — the payload never goes through the object serializer, so
// a responder can answer probes before any Serialization is even built.
package discovery

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/netkitlog"
)

// Found is one server's discovery response.
type Found struct {
	Addr    net.Addr
	Payload []byte
}

// Probe broadcasts cfg.DiscoveryMagic to the broadcast address of
// cfg.DiscoveryAddr's port and collects responses until ctx is done or
// timeout elapses, whichever comes first. It returns every response
// received, in arrival order; a responder that answers twice appears twice.
func Probe(ctx context.Context, cfg netkitcfg.Endpoint, timeout time.Duration) ([]Found, error) {
	_, port, err := net.SplitHostPort(cfg.DiscoveryAddr)
	if err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "parsing discovery address %q", cfg.DiscoveryAddr)
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "opening discovery socket")
	}
	defer conn.Close()

	broadcast, err := net.ResolveUDPAddr("udp4", net.JoinHostPort("255.255.255.255", port))
	if err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "resolving broadcast address")
	}

	if _, err := conn.WriteTo([]byte{cfg.DiscoveryMagic}, broadcast); err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "broadcasting discovery probe")
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	var found []Found
	buf := make([]byte, 1500)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			break // deadline reached or socket closed; return what we collected
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		found = append(found, Found{Addr: src, Payload: payload})

		select {
		case <-ctx.Done():
			return found, nil
		default:
		}
	}
	return found, nil
}

// ProbeOne is the single-responder convenience form of Probe: it collects
// for the same period as Probe and returns the first response received, or
// errors with netkiterr.Timeout when nothing was heard.
func ProbeOne(ctx context.Context, cfg netkitcfg.Endpoint, timeout time.Duration) (Found, error) {
	found, err := Probe(ctx, cfg, timeout)
	if err != nil {
		return Found{}, err
	}
	if len(found) == 0 {
		return Found{}, netkiterr.New(netkiterr.Timeout, "no discovery response within %s", timeout)
	}
	return found[0], nil
}

// Responder answers discovery probes on cfg.DiscoveryAddr: any datagram
// whose first byte equals cfg.DiscoveryMagic gets payload written back to
// the sender. Anything else is silently ignored. It runs until ctx is
// done, at which point it closes its socket and returns nil.
func Responder(ctx context.Context, cfg netkitcfg.Endpoint, payload []byte) error {
	conn, err := net.ListenPacket("udp4", cfg.DiscoveryAddr)
	if err != nil {
		return netkiterr.Wrap(netkiterr.IoError, err, "listening for discovery on %s", cfg.DiscoveryAddr)
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, 1500)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return netkiterr.Wrap(netkiterr.IoError, err, "reading discovery socket")
		}
		if n == 0 || buf[0] != cfg.DiscoveryMagic {
			continue
		}
		if _, err := conn.WriteTo(payload, src); err != nil {
			netkitlog.Logf(netkitlog.WarnLevel, "discovery: failed to reply to %s: %v", src, err)
		}
	}
}
