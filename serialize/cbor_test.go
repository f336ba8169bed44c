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

package serialize_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/netkit/netkiterr"
	"github.com/nabbar/netkit/serialize"
)

func TestSerialize(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "serialize suite")
}

type strMsg struct {
	Text string
}

var _ = Describe("CBOR serializer", func() {
	It("round-trips a registered struct", func() {
		s := serialize.NewCBOR(4096)
		_, err := s.RegisterType(strMsg{})
		Expect(err).ToNot(HaveOccurred())

		var buf bytes.Buffer
		Expect(s.Write(&buf, strMsg{Text: "hi"})).To(Succeed())

		out, err := s.Read(&buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(strMsg{Text: "hi"}))
	})

	It("rejects writing an unregistered type", func() {
		s := serialize.NewCBOR(4096)
		var buf bytes.Buffer
		err := s.Write(&buf, strMsg{Text: "oops"})
		Expect(err).To(HaveOccurred())
		Expect(err.(netkiterr.Error).IsCode(netkiterr.SerializationError)).To(BeTrue())
	})

	It("keeps registration order stable across two serializers", func() {
		a := serialize.NewCBOR(4096)
		b := serialize.NewCBOR(4096)

		idA1, _ := a.RegisterType(strMsg{})
		idB1, _ := b.RegisterType(strMsg{})
		Expect(idA1).To(Equal(idB1))

		type other struct{ N int }
		idA2, _ := a.RegisterType(other{})
		idB2, _ := b.RegisterType(other{})
		Expect(idA2).To(Equal(idB2))
	})

	It("re-registering the same type returns the same id", func() {
		s := serialize.NewCBOR(4096)
		id1, _ := s.RegisterType(strMsg{})
		id2, _ := s.RegisterType(strMsg{})
		Expect(id1).To(Equal(id2))
	})
})
