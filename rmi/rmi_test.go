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

package rmi_test

import (
	"net"
	"reflect"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/netkit/channel"
	"github.com/nabbar/netkit/connection"
	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/rmi"
	"github.com/nabbar/netkit/serialize"
)

func TestRMI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "rmi suite")
}

// Calculator is the application-declared target interface; no rmi-specific
// code appears on it.
type Calculator interface {
	Add(a, b int) int
	Greet(name string) string
}

type calculatorImpl struct{}

func (calculatorImpl) Add(a, b int) int         { return a + b }
func (calculatorImpl) Greet(name string) string { return "hello " + name }

var calculatorType = reflect.TypeOf((*Calculator)(nil)).Elem()

// calculatorProxy is the hand-written (or generated) client-side stand-in:
// each method builds its argument list and forwards to the embedded Stub.
type calculatorProxy struct {
	*rmi.Stub
}

func (p *calculatorProxy) Add(a, b int) int {
	ret, err := p.Invoke("Add", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)}, []any{a, b})
	if err != nil || ret == nil {
		return 0
	}
	return asInt(ret)
}

func (p *calculatorProxy) Greet(name string) string {
	ret, err := p.Invoke("Greet", []reflect.Type{reflect.TypeOf("")}, []any{name})
	if err != nil || ret == nil {
		return ""
	}
	s, _ := ret.(string)
	return s
}

// asInt normalizes the serializer's untyped decode of a numeric return
// value (cbor decodes an "any"-typed field as uint64, or int64 when
// negative) back to int.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}

func pipeConnections() (*connection.Connection, *connection.Connection) {
	srvSide, cliSide := net.Pipe()

	serSrv := serialize.NewCBOR(1 << 16)
	serCli := serialize.NewCBOR(1 << 16)
	_ = rmi.RegisterWireTypes(serSrv)
	_ = rmi.RegisterWireTypes(serCli)

	cfg := netkitcfg.DefaultEndpoint()
	srvReliable := channel.NewReliable(srvSide, serSrv, cfg.ObjectBufferLen, cfg.WriteBufferLen)
	cliReliable := channel.NewReliable(cliSide, serCli, cfg.ObjectBufferLen, cfg.WriteBufferLen)

	srvConn := connection.New(1, srvReliable, cfg)
	cliConn := connection.New(2, cliReliable, cfg)

	srvConn.MarkConnected(0)
	cliConn.MarkConnected(0)

	srvConn.Serve(func(c *connection.Connection, obj any) error { return c.Deliver(obj) })
	cliConn.Serve(func(c *connection.Connection, obj any) error { return c.Deliver(obj) })

	return srvConn, cliConn
}

var _ = Describe("ObjectSpace RMI", func() {
	It("invokes a remote method and returns its result", func() {
		srvConn, cliConn := pipeConnections()
		defer srvConn.Close()
		defer cliConn.Close()

		space := rmi.NewObjectSpace(1)
		objID := space.Register(calculatorType, calculatorImpl{})
		space.Attach(srvConn)

		callerSpace := rmi.NewObjectSpace(1)
		sess := callerSpace.Attach(cliConn)

		proxy := &calculatorProxy{Stub: rmi.NewStub(sess, 1, objID, calculatorType, netkitcfg.DefaultProxyOptions())}

		Expect(proxy.Add(2, 3)).To(Equal(5))
		Expect(proxy.Greet("netkit")).To(Equal("hello netkit"))
	})

	It("fails fast with RmiTimeout when the server never replies", func() {
		srvConn, cliConn := pipeConnections()
		defer srvConn.Close()
		defer cliConn.Close()

		// No ObjectSpace attached on the server side: InvokeMethod frames
		// are simply never answered since there's no Session to see them.
		callerSpace := rmi.NewObjectSpace(1)
		sess := callerSpace.Attach(cliConn)

		opts := netkitcfg.DefaultProxyOptions()
		opts.ResponseTimeout = 100 * time.Millisecond
		proxy := &calculatorProxy{Stub: rmi.NewStub(sess, 1, 1, calculatorType, opts)}

		_, err := proxy.Invoke("Add", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)}, []any{1, 2})
		Expect(err).To(HaveOccurred())
	})

	It("reports a non-existent object as a RemoteException", func() {
		srvConn, cliConn := pipeConnections()
		defer srvConn.Close()
		defer cliConn.Close()

		space := rmi.NewObjectSpace(1)
		space.Attach(srvConn)

		callerSpace := rmi.NewObjectSpace(1)
		sess := callerSpace.Attach(cliConn)

		opts := netkitcfg.DefaultProxyOptions()
		opts.ResponseTimeout = 2 * time.Second
		proxy := &calculatorProxy{Stub: rmi.NewStub(sess, 1, 99, calculatorType, opts)}

		_, err := proxy.Invoke("Add", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)}, []any{1, 2})
		Expect(err).To(HaveOccurred())
	})

	It("does not block a NonBlocking proxy call", func() {
		srvConn, cliConn := pipeConnections()
		defer srvConn.Close()
		defer cliConn.Close()

		space := rmi.NewObjectSpace(1)
		objID := space.Register(calculatorType, calculatorImpl{})
		space.Attach(srvConn)

		callerSpace := rmi.NewObjectSpace(1)
		sess := callerSpace.Attach(cliConn)

		opts := netkitcfg.DefaultProxyOptions()
		opts.NonBlocking = true
		proxy := &calculatorProxy{Stub: rmi.NewStub(sess, 1, objID, calculatorType, opts)}

		ret, err := proxy.Invoke("Add", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)}, []any{1, 2})
		Expect(err).ToNot(HaveOccurred())
		Expect(ret).To(BeNil())
	})
})
