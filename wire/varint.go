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

// Package wire implements the reliable-channel frame prefix: a 1-5 byte
// little-endian base-128 varint length followed by exactly that many
// payload bytes.
package wire

// MaxVarintLen is the largest number of bytes a length prefix can occupy.
const MaxVarintLen = 5

// PutUvarint encodes v into buf (which must have at least MaxVarintLen
// bytes) and returns the number of bytes written.
func PutUvarint(buf []byte, v uint32) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

// UvarintLen returns the number of bytes PutUvarint would write for v.
func UvarintLen(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Uvarint decodes a length prefix from the front of buf. It returns the
// decoded value, the number of bytes consumed, or (0, 0) if buf does not yet
// hold a complete prefix, or (0, -1) if the prefix would exceed MaxVarintLen
// bytes without terminating (a malformed/oversize frame).
func Uvarint(buf []byte) (uint32, int) {
	var v uint32
	for i := 0; i < len(buf) && i < MaxVarintLen; i++ {
		b := buf[i]
		v |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, i + 1
		}
	}
	if len(buf) >= MaxVarintLen {
		return 0, -1
	}
	return 0, 0
}
