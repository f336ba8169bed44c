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

package listener

import (
	"reflect"
	"sync"
)

// TypeHandler handles one registered message type.
type TypeHandler func(c Conn, obj any)

// Type dispatches Received by the runtime type of the message. Registering
// the same type twice overwrites the previous handler.
type Type struct {
	Base

	mu       sync.RWMutex
	handlers map[reflect.Type]TypeHandler
}

// NewType builds an empty Type listener.
func NewType() *Type {
	return &Type{handlers: make(map[reflect.Type]TypeHandler)}
}

// AddTypeHandler registers h for every message whose runtime type equals
// the type of sample.
func (t *Type) AddTypeHandler(sample any, h TypeHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[reflect.TypeOf(sample)] = h
}

// RemoveTypeHandler removes the handler registered for sample's type, if any.
func (t *Type) RemoveTypeHandler(sample any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, reflect.TypeOf(sample))
}

// Size returns the number of distinct types currently handled.
func (t *Type) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// Clear removes every registered handler.
func (t *Type) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = make(map[reflect.Type]TypeHandler)
}

// Received dispatches obj to its registered handler, if any; unregistered
// types are silently dropped.
func (t *Type) Received(c Conn, obj any) {
	t.mu.RLock()
	h, ok := t.handlers[reflect.TypeOf(obj)]
	t.mu.RUnlock()
	if ok {
		h(c, obj)
	}
}

var _ Listener = (*Type)(nil)
