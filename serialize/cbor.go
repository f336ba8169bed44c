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

package serialize

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/nabbar/netkit/netkiterr"
)

// envelope wraps every object on the wire with the numeric type id assigned
// by RegisterType, so the peer can decode into the right Go type without
// runtime class introspection.
type envelope struct {
	TypeID  uint32          `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint"`
}

// cborSerializer is the default Serialization implementation.
type cborSerializer struct {
	*registry
}

// NewCBOR builds a Serialization capability backed by fxamacker/cbor/v2,
// sized for frames up to maxFrameLen bytes.
func NewCBOR(maxFrameLen int) Serialization {
	return &cborSerializer{registry: newRegistry(maxFrameLen)}
}

func (s *cborSerializer) RegisterType(sample any) (uint32, error) {
	return s.register(sample)
}

func (s *cborSerializer) LengthLength() int {
	return s.maxLen
}

func (s *cborSerializer) Write(w io.Writer, obj any) error {
	t := reflect.TypeOf(obj)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
		obj = reflect.ValueOf(obj).Elem().Interface()
	}

	id, ok := s.idFor(t)
	if !ok {
		name := "<nil>"
		if t != nil {
			name = t.String()
		}
		return netkiterr.New(netkiterr.SerializationError, "type %s was never registered", name)
	}

	payload, err := cbor.Marshal(obj)
	if err != nil {
		return netkiterr.Wrap(netkiterr.SerializationError, err, "encoding %s", t.String())
	}

	buf, err := cbor.Marshal(envelope{TypeID: id, Payload: payload})
	if err != nil {
		return netkiterr.Wrap(netkiterr.SerializationError, err, "encoding envelope for %s", t.String())
	}

	if _, err := w.Write(buf); err != nil {
		return netkiterr.Wrap(netkiterr.IoError, err, "writing serialized object")
	}
	return nil
}

func (s *cborSerializer) Read(r io.Reader) (any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, netkiterr.Wrap(netkiterr.IoError, err, "reading serialized object")
	}

	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, netkiterr.Wrap(netkiterr.SerializationError, err, "decoding envelope")
	}

	t, ok := s.typeFor(env.TypeID)
	if !ok {
		return nil, netkiterr.New(netkiterr.SerializationError, "unknown registered type id %d", env.TypeID)
	}

	ptr := reflect.New(t)
	if err := cbor.Unmarshal(env.Payload, ptr.Interface()); err != nil {
		return nil, netkiterr.Wrap(netkiterr.SerializationError, err, "decoding %s", t.String())
	}
	return ptr.Elem().Interface(), nil
}
