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

// Package serialize defines the pluggable Serialization capability (§4.1)
// and a default implementation backed by fxamacker/cbor/v2.
package serialize

import (
	"io"
	"reflect"
	"sync"

	"github.com/nabbar/netkit/netkiterr"
)

// Serialization is the capability the core consumes to turn an object graph
// into bytes and back. Registration order (and therefore the numeric type
// ids assigned by RegisterType) must match on both peers.
type Serialization interface {
	// RegisterType assigns the next sequential type id to sample's type.
	RegisterType(sample any) (id uint32, err error)
	// Write encodes obj, tagged with its registered type id, to w.
	Write(w io.Writer, obj any) error
	// Read decodes the next object from r using its embedded type id.
	Read(r io.Reader) (any, error)
	// LengthLength returns the configured max frame size, for buffer sizing.
	LengthLength() int
}

// registry is the shared bookkeeping between any Serialization
// implementation built on a type-id envelope.
type registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]uint32
	byID   map[uint32]reflect.Type
	nextID uint32
	maxLen int
}

func newRegistry(maxLen int) *registry {
	return &registry{
		byType: make(map[reflect.Type]uint32),
		byID:   make(map[uint32]reflect.Type),
		nextID: 1,
		maxLen: maxLen,
	}
}

func (r *registry) register(sample any) (uint32, error) {
	t := reflect.TypeOf(sample)
	if t == nil {
		return 0, netkiterr.New(netkiterr.SerializationError, "cannot register a nil sample")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byType[t]; ok {
		return id, nil
	}
	id := r.nextID
	r.nextID++
	r.byType[t] = id
	r.byID[id] = t
	return id, nil
}

func (r *registry) idFor(t reflect.Type) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byType[t]
	return id, ok
}

func (r *registry) typeFor(id uint32) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}
