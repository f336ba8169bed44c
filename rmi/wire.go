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

// Package rmi implements the ObjectSpace remote-invocation layer (§4.8):
// proxies forward method calls as InvokeMethod frames over a connection's
// reliable (or, optionally, datagram) channel; the receiving ObjectSpace
// reflects the call against a registered target and replies with
// InvokeResult. Both message classes are ordinary objects carried by the
// same Serialization capability as application traffic — there is no
// separate RMI wire format.
package rmi

import "github.com/nabbar/netkit/serialize"

// InvokeMethod asks the peer's ObjectSpace identified by ObjectSpaceID to
// call the method at MethodIndex (into that object's MethodTable, §9) on
// ObjectID, with Args as the declared parameter values. ResponseID is zero
// when no reply is expected.
type InvokeMethod struct {
	ObjectSpaceID uint16
	ObjectID      uint32
	MethodIndex   uint32
	Args          []any
	ResponseID    uint8
	NonBlocking   bool
}

// InvokeResult answers an InvokeMethod carrying the same ResponseID, either
// with ReturnValue or, if HasException, with the remote method's panic/error
// message in Exception.
type InvokeResult struct {
	ResponseID   uint8
	ReturnValue  any
	HasException bool
	Exception    string
}

// RegisterWireTypes registers InvokeMethod and InvokeResult on ser. Both
// peers must call it at the same point in their registration sequence
// (typically right after reactor.NewSerializer's handshake types) so the
// assigned type ids line up.
func RegisterWireTypes(ser serialize.Serialization) error {
	if _, err := ser.RegisterType(InvokeMethod{}); err != nil {
		return err
	}
	if _, err := ser.RegisterType(InvokeResult{}); err != nil {
		return err
	}
	return nil
}
