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

package wire_test

import (
	"testing"

	. "github.com/nabbar/netkit/wire"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWire(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "wire suite")
}

var _ = Describe("Uvarint framing", func() {
	It("round-trips small values in one byte", func() {
		buf := make([]byte, MaxVarintLen)
		n := PutUvarint(buf, 42)
		Expect(n).To(Equal(1))

		v, consumed := Uvarint(buf[:n])
		Expect(v).To(Equal(uint32(42)))
		Expect(consumed).To(Equal(1))
	})

	It("round-trips values requiring multiple bytes", func() {
		for _, v := range []uint32{127, 128, 16384, 2097151, 1 << 28, 0xFFFFFFFF} {
			buf := make([]byte, MaxVarintLen)
			n := PutUvarint(buf, v)
			Expect(n).To(Equal(UvarintLen(v)))

			got, consumed := Uvarint(buf[:n])
			Expect(consumed).To(Equal(n))
			Expect(got).To(Equal(v))
		}
	})

	It("reports an incomplete prefix as needing more bytes", func() {
		buf := []byte{0x80, 0x80}
		v, n := Uvarint(buf)
		Expect(v).To(Equal(uint32(0)))
		Expect(n).To(Equal(0))
	})

	It("rejects a prefix that never terminates within MaxVarintLen bytes", func() {
		buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80}
		_, n := Uvarint(buf)
		Expect(n).To(Equal(-1))
	})

	It("never needs more than MaxVarintLen bytes for a uint32", func() {
		Expect(UvarintLen(0xFFFFFFFF)).To(BeNumerically("<=", MaxVarintLen))
	})
})
