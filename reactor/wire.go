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

// Package reactor implements the Server/Client endpoint update loop (§4.5):
// accept/connect, the reliable-first registration handshake, and spawning
// the per-connection reader/writer/monitor goroutines from package
// connection.
package reactor

import "github.com/nabbar/netkit/serialize"

// registerTCP is the server->client handshake frame carrying the assigned
// connection id (§6).
type registerTCP struct {
	ConnectionID int32
}

// registerUDP is the client->server handshake datagram binding the
// datagram peer address to a connection id (§6).
type registerUDP struct {
	ConnectionID int32
}

// NewSerializer builds a CBOR serializer with the handshake control
// messages pre-registered as the first two type ids, so application
// RegisterType calls made afterward land on the same ids on both peers
// (§4.1, §4.5: "registration order/ids must match on both peers").
func NewSerializer(maxFrameLen int) serialize.Serialization {
	s := serialize.NewCBOR(maxFrameLen)
	_, _ = s.RegisterType(registerTCP{})
	_, _ = s.RegisterType(registerUDP{})
	return s
}
