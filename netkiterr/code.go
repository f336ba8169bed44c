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

// Package netkiterr provides coded, hierarchical errors shared across every
// netkit component, in place of bare error values.
package netkiterr

import "strconv"

// CodeError is a numeric error classification, similar in spirit to an HTTP
// status code, shared by every component of the library.
type CodeError uint16

const (
	UnknownError CodeError = iota
	SerializationError
	BufferOverflow
	FrameTooLarge
	ProtocolError
	Timeout
	PeerClosed
	IoError
	RmiOverload
	RmiTimeout
	RemoteException
	DatagramUnsent
)

var codeMessage = map[CodeError]string{
	UnknownError:       "unknown error",
	SerializationError: "serialization error",
	BufferOverflow:     "write buffer overflow",
	FrameTooLarge:      "incoming frame exceeds object buffer size",
	ProtocolError:      "protocol violation",
	Timeout:            "receive timeout elapsed",
	PeerClosed:         "peer closed the connection",
	IoError:            "socket i/o error",
	RmiOverload:        "no response id available",
	RmiTimeout:         "rmi call timed out",
	RemoteException:    "remote method raised an exception",
	DatagramUnsent:     "datagram send failed",
}

// fatalCodes lists the codes that, when attached to a Connection-level
// operation, must transition the connection to Closed.
var fatalCodes = map[CodeError]bool{
	FrameTooLarge: true,
	ProtocolError: true,
	Timeout:       true,
	PeerClosed:    true,
	IoError:       true,
}

// Fatal reports whether this code is connection-fatal per §7 of the spec.
func (c CodeError) Fatal() bool {
	return fatalCodes[c]
}

// String returns the default message registered for this code.
func (c CodeError) String() string {
	if m, ok := codeMessage[c]; ok {
		return m
	}
	return "code(" + strconv.Itoa(int(c)) + ")"
}
