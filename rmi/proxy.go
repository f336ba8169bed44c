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
	"reflect"
	"sync"
	"time"

	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/netkitmetrics"
)

// defaultResponseTimeout applies when ProxyOptions.ResponseTimeout is zero.
const defaultResponseTimeout = 10 * time.Second

// RemoteObject is the capability-cast control handle described in §4.8: a
// proxy built on Stub also satisfies this interface, reachable only by a
// type assertion (the application's target interface never declares these
// methods itself, so it can't collide with them).
type RemoteObject interface {
	remoteObject()
	Options() netkitcfg.ProxyOptions
	SetOptions(netkitcfg.ProxyOptions)
	LastResponse() any
}

// Stub is embedded by an application-defined proxy struct; the embedding
// struct's own methods implement the target interface by building args and
// calling Stub.Invoke. This is the idiomatic-Go stand-in for a dynamic
// proxy: Go has no runtime mechanism to attach methods to a type it
// synthesizes, so the method bodies are written once per interface instead
// of generated from reflect.MakeFunc (see design note).
type Stub struct {
	sess     *Session
	spaceID  uint16
	objectID uint32
	table    *MethodTable

	mu       sync.Mutex
	opts     netkitcfg.ProxyOptions
	lastResp any
}

var _ RemoteObject = (*Stub)(nil)

// NewStub builds a Stub targeting objectID in the ObjectSpace namespaced by
// spaceID, reached via sess. iface is the target interface the embedding
// proxy struct implements; it is used only to build the MethodTable.
func NewStub(sess *Session, spaceID uint16, objectID uint32, iface reflect.Type, opts netkitcfg.ProxyOptions) *Stub {
	return &Stub{
		sess:     sess,
		spaceID:  spaceID,
		objectID: objectID,
		table:    NewMethodTable(iface),
		opts:     opts,
	}
}

func (s *Stub) remoteObject() {}

// Options returns the proxy's current RMI flags (§4.8).
func (s *Stub) Options() netkitcfg.ProxyOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetOptions replaces the proxy's RMI flags.
func (s *Stub) SetOptions(o netkitcfg.ProxyOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = o
}

// LastResponse returns the most recent return value, if
// ProxyOptions.RememberLastResponse is set; nil otherwise.
func (s *Stub) LastResponse() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResp
}

// Invoke sends methodName(args...) — whose declared parameter types are
// paramTypes — as an InvokeMethod frame and, unless the proxy is configured
// non-blocking or not expecting a return value, parks until InvokeResult
// arrives or ResponseTimeout elapses.
func (s *Stub) Invoke(methodName string, paramTypes []reflect.Type, args []any) (any, error) {
	idx, ok := s.table.IndexForSignature(methodName, paramTypes)
	if !ok {
		return nil, netkiterr.New(netkiterr.ProtocolError, "rmi: %s is not in this proxy's method table", methodName)
	}

	opts := s.Options()
	expectResponse := !opts.NonBlocking && opts.TransmitReturnValue

	var responseID uint8
	var wait chan InvokeResult
	if expectResponse {
		id, err := s.sess.alloc.allocate()
		if err != nil {
			return nil, err
		}
		responseID = id
		wait = make(chan InvokeResult, 1)
		s.sess.registerWaiter(id, wait)
	}

	msg := InvokeMethod{
		ObjectSpaceID: s.spaceID,
		ObjectID:      s.objectID,
		MethodIndex:   idx,
		Args:          args,
		ResponseID:    responseID,
		NonBlocking:   opts.NonBlocking,
	}

	var sendErr error
	if opts.UseUDP {
		_, sendErr = s.sess.conn.SendUDP(msg)
	} else {
		_, sendErr = s.sess.conn.SendTCP(msg)
	}
	netkitmetrics.RmiCallsIssued.Inc()

	if sendErr != nil {
		if expectResponse {
			s.sess.abandonWaiter(responseID)
		}
		netkitmetrics.RmiCallsCompleted.WithLabelValues("send_error").Inc()
		return nil, sendErr
	}

	if !expectResponse {
		netkitmetrics.RmiCallsCompleted.WithLabelValues("fire_and_forget").Inc()
		return nil, nil
	}

	timeout := opts.ResponseTimeout
	if timeout <= 0 {
		timeout = defaultResponseTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	start := time.Now()
	select {
	case res := <-wait:
		netkitmetrics.RmiCallDuration.Observe(time.Since(start).Seconds())
		return s.resolve(res, opts)
	case <-timer.C:
		s.sess.abandonWaiter(responseID)
		netkitmetrics.RmiCallsCompleted.WithLabelValues("timeout").Inc()
		return nil, netkiterr.New(netkiterr.RmiTimeout, "rmi call %s timed out after %s", methodName, timeout)
	}
}

func (s *Stub) resolve(res InvokeResult, opts netkitcfg.ProxyOptions) (any, error) {
	if res.HasException {
		netkitmetrics.RmiCallsCompleted.WithLabelValues("exception").Inc()
		if opts.TransmitExceptions {
			return nil, netkiterr.New(netkiterr.RemoteException, "%s", res.Exception)
		}
		return nil, nil
	}

	netkitmetrics.RmiCallsCompleted.WithLabelValues("ok").Inc()
	if opts.RememberLastResponse {
		s.mu.Lock()
		s.lastResp = res.ReturnValue
		s.mu.Unlock()
	}
	return res.ReturnValue, nil
}
