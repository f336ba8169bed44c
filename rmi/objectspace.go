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

package rmi

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/nabbar/netkit/connection"
	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitlog"
)

type registered struct {
	target any
	table  *MethodTable
}

// ObjectSpace is a namespaced registry of remote-callable objects. Each
// endpoint owns its own instance(s) rather than sharing one process-wide
// singleton (§9 design note) — the namespace id on the wire is what lets
// several independent ObjectSpaces share a connection.
type ObjectSpace struct {
	id        uint16
	mu        sync.RWMutex
	objects   map[uint32]registered
	nextObjID atomic.Uint32
}

// NewObjectSpace builds an empty ObjectSpace under id.
func NewObjectSpace(id uint16) *ObjectSpace {
	return &ObjectSpace{id: id, objects: make(map[uint32]registered)}
}

// ID returns the namespace id carried on InvokeMethod/InvokeResult frames.
func (s *ObjectSpace) ID() uint16 {
	return s.id
}

// Register exposes target under iface's method table and returns the
// object id a proxy must target. iface must be an interface type that
// target implements.
func (s *ObjectSpace) Register(iface reflect.Type, target any) uint32 {
	id := s.nextObjID.Add(1)
	s.mu.Lock()
	s.objects[id] = registered{target: target, table: NewMethodTable(iface)}
	s.mu.Unlock()
	return id
}

// Remove unregisters objectID; invocations against it afterward get "object
// not found".
func (s *ObjectSpace) Remove(objectID uint32) {
	s.mu.Lock()
	delete(s.objects, objectID)
	s.mu.Unlock()
}

func (s *ObjectSpace) lookup(objectID uint32) (registered, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.objects[objectID]
	return r, ok
}

// Attach binds this ObjectSpace to conn: incoming InvokeMethod frames
// carrying this space's id are served against its registry, and the
// returned Session is what proxies built with NewStub call through.
func (s *ObjectSpace) Attach(conn *connection.Connection) *Session {
	sess := &Session{
		conn:    conn,
		space:   s,
		alloc:   newResponseAllocator(),
		waiters: make(map[uint8]chan InvokeResult),
	}
	conn.AddListener(sess)
	return sess
}

// Session is one connection's attachment to an ObjectSpace: it serves
// incoming InvokeMethod frames against the space's registry and correlates
// InvokeResult frames back to this connection's outstanding proxy calls.
// A connection may carry several Sessions, one per attached ObjectSpace.
type Session struct {
	listener.Base

	conn  *connection.Connection
	space *ObjectSpace
	alloc *responseAllocator

	mu      sync.Mutex
	waiters map[uint8]chan InvokeResult
}

var _ listener.Listener = (*Session)(nil)

// Received implements listener.Listener, routing InvokeMethod to the
// registry and InvokeResult to whichever proxy call is waiting on it.
func (s *Session) Received(_ listener.Conn, obj any) {
	switch m := obj.(type) {
	case InvokeMethod:
		s.handleInvoke(m)
	case InvokeResult:
		s.handleResult(m)
	}
}

// Disconnected implements listener.Listener: every outstanding proxy call
// on this session unparks with a RemoteException("connection disconnected")
// rather than waiting out its full timeout.
func (s *Session) Disconnected(listener.Conn) {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = make(map[uint8]chan InvokeResult)
	s.mu.Unlock()

	for id, ch := range waiters {
		s.alloc.release(id)
		ch <- InvokeResult{ResponseID: id, HasException: true, Exception: "connection disconnected"}
	}
}

func (s *Session) handleInvoke(m InvokeMethod) {
	if m.ObjectSpaceID != s.space.id {
		return // not ours; another Session on this connection owns it
	}

	reg, ok := s.space.lookup(m.ObjectID)
	if !ok {
		s.replyError(m.ResponseID, "object not found")
		return
	}
	name, sig, ok := reg.table.ByIndex(m.MethodIndex)
	if !ok {
		s.replyError(m.ResponseID, "method not found")
		return
	}

	in := make([]reflect.Value, sig.NumIn())
	for i := range in {
		want := sig.In(i)
		if i < len(m.Args) && m.Args[i] != nil {
			in[i] = coerce(reflect.ValueOf(m.Args[i]), want)
		} else {
			in[i] = reflect.Zero(want)
		}
	}

	out, callErr := safeCall(reflect.ValueOf(reg.target), name, in)
	if m.ResponseID == 0 {
		return
	}
	if callErr != nil {
		s.replyError(m.ResponseID, callErr.Error())
		return
	}

	var ret any
	if len(out) > 0 {
		ret = out[0].Interface()
	}
	s.reply(InvokeResult{ResponseID: m.ResponseID, ReturnValue: ret})
}

// coerce adapts a serializer-decoded argument (e.g. CBOR's untyped decode
// of a number into int64/float64) to the method's declared parameter type.
func coerce(v reflect.Value, want reflect.Type) reflect.Value {
	if v.Type().AssignableTo(want) {
		return v
	}
	if v.Type().ConvertibleTo(want) {
		return v.Convert(want)
	}
	return reflect.Zero(want)
}

func (s *Session) replyError(responseID uint8, msg string) {
	if responseID == 0 {
		return
	}
	s.reply(InvokeResult{ResponseID: responseID, HasException: true, Exception: msg})
}

func (s *Session) reply(res InvokeResult) {
	if _, err := s.conn.SendTCP(res); err != nil {
		netkitlog.Logf(netkitlog.WarnLevel, "rmi: failed to send InvokeResult %d: %v", res.ResponseID, err)
	}
}

func (s *Session) handleResult(m InvokeResult) {
	s.mu.Lock()
	ch, ok := s.waiters[m.ResponseID]
	if ok {
		delete(s.waiters, m.ResponseID)
	}
	s.mu.Unlock()

	if !ok {
		return // stray response, or the call already timed out and was abandoned
	}
	s.alloc.release(m.ResponseID)
	ch <- m
}

func (s *Session) registerWaiter(id uint8, ch chan InvokeResult) {
	s.mu.Lock()
	s.waiters[id] = ch
	s.mu.Unlock()
}

func (s *Session) abandonWaiter(id uint8) {
	if id == 0 {
		return
	}
	s.mu.Lock()
	delete(s.waiters, id)
	s.mu.Unlock()
	s.alloc.release(id)
}

// safeCall invokes name on target via reflection, recovering a panic (e.g.
// a nil-pointer dereference in the target method) into an error so a
// misbehaving remote object never takes the connection's goroutine down
// with it.
func safeCall(target reflect.Value, name string, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	out = target.MethodByName(name).Call(in)
	return out, nil
}
