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
	"sort"
	"strings"
)

type methodEntry struct {
	Name string
	Type reflect.Type // method signature (no receiver — interface Method.Type)
}

// MethodTable is the explicit name+signature -> index table that stands in
// for reflection on the wire contract (§4.8, §9): built once per registered
// interface by sorting its methods by (name, parameter type list), so two
// peers that agree on the Go interface definition always agree on the
// index without exchanging any schema.
type MethodTable struct {
	iface   reflect.Type
	entries []methodEntry
	index   map[string]uint32
}

// NewMethodTable builds a MethodTable from iface, which must be an
// interface type, e.g. reflect.TypeOf((*MyService)(nil)).Elem().
func NewMethodTable(iface reflect.Type) *MethodTable {
	if iface.Kind() != reflect.Interface {
		panic("rmi: NewMethodTable requires an interface type")
	}

	entries := make([]methodEntry, iface.NumMethod())
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		entries[i] = methodEntry{Name: m.Name, Type: m.Type}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return signatureKey(entries[i].Type) < signatureKey(entries[j].Type)
	})

	index := make(map[string]uint32, len(entries))
	for i, e := range entries {
		index[e.Name+signatureKey(e.Type)] = uint32(i)
	}
	return &MethodTable{iface: iface, entries: entries, index: index}
}

func signatureKey(t reflect.Type) string {
	var b strings.Builder
	for i := 0; i < t.NumIn(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.In(i).String())
	}
	return b.String()
}

// Len returns the number of methods in the table.
func (t *MethodTable) Len() int {
	return len(t.entries)
}

// IndexForSignature resolves name+paramTypes to its stable MethodIndex, for
// a proxy encoding an InvokeMethod frame.
func (t *MethodTable) IndexForSignature(name string, paramTypes []reflect.Type) (uint32, bool) {
	var b strings.Builder
	for i, p := range paramTypes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	idx, ok := t.index[name+b.String()]
	return idx, ok
}

// ByIndex resolves a wire MethodIndex back to a method name and its
// declared signature, for the server side to reflect-invoke against.
func (t *MethodTable) ByIndex(idx uint32) (name string, sig reflect.Type, ok bool) {
	if int(idx) >= len(t.entries) {
		return "", nil, false
	}
	e := t.entries[idx]
	return e.Name, e.Type, true
}
