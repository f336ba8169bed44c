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

package netkiterr

import "fmt"

// Error extends the standard error interface with a code and an optional
// parent chain, so callers can branch on failure class without string
// matching.
type Error interface {
	error

	// Code returns this error's classification.
	Code() CodeError
	// IsCode reports whether this error's own code equals the given code.
	IsCode(code CodeError) bool
	// HasCode reports whether this error or any parent carries the given code.
	HasCode(code CodeError) bool
	// WithParent returns a copy of this error chained onto the given parent.
	WithParent(parent error) Error
	// Parents returns the chain of wrapped errors, nearest first.
	Parents() []error
	// Unwrap supports errors.Is / errors.As against the parent chain.
	Unwrap() error
}

type codedError struct {
	code    CodeError
	detail  string
	parent  error
}

// New builds an Error for the given code with an optional formatted detail.
func New(code CodeError, format string, args ...any) Error {
	e := &codedError{code: code}
	if format != "" {
		e.detail = fmt.Sprintf(format, args...)
	}
	return e
}

// Wrap builds an Error for the given code, chaining the supplied cause.
func Wrap(code CodeError, cause error, format string, args ...any) Error {
	e := New(code, format, args...).(*codedError)
	e.parent = cause
	return e
}

func (e *codedError) Error() string {
	if e.detail == "" {
		return e.code.String()
	}
	return e.code.String() + ": " + e.detail
}

func (e *codedError) Code() CodeError {
	return e.code
}

func (e *codedError) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *codedError) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}
	if p, ok := e.parent.(Error); ok {
		return p.HasCode(code)
	}
	return false
}

func (e *codedError) WithParent(parent error) Error {
	n := *e
	n.parent = parent
	return &n
}

func (e *codedError) Parents() []error {
	var out []error
	cur := e.parent
	for cur != nil {
		out = append(out, cur)
		if p, ok := cur.(Error); ok {
			cur = p.Unwrap()
		} else {
			cur = nil
		}
	}
	return out
}

func (e *codedError) Unwrap() error {
	return e.parent
}

// IsFatal reports whether err, if a netkiterr.Error, carries a connection-fatal code.
func IsFatal(err error) bool {
	if e, ok := err.(Error); ok {
		return e.Code().Fatal()
	}
	return false
}
