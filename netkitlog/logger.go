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

// Package netkitlog is a thin structured-logging facade over logrus, in the
// shape of a package-level leveled logger so every component can log without
// threading a logger instance through every call.
package netkitlog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Level uint8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	mu  sync.RWMutex
	std = logrus.New()
)

func toLogrus(l Level) logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetOutputLevel changes the minimal level logged by the package logger.
func SetOutputLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	std.SetLevel(toLogrus(l))
}

// SetLogger replaces the underlying logrus logger, e.g. to change formatter
// or output writer from an application's main().
func SetLogger(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields = logrus.Fields

// Logf emits a formatted message at the given level.
func Logf(l Level, format string, args ...any) {
	mu.RLock()
	entry := std
	mu.RUnlock()
	entry.Logf(toLogrus(l), format, args...)
}

// WithFields returns an entry carrying structured context (e.g. connection
// id, remote address) for subsequent calls to Logf-style formatting.
func WithFields(f Fields) *logrus.Entry {
	mu.RLock()
	entry := std
	mu.RUnlock()
	return entry.WithFields(f)
}

// ConnFields builds the structured fields netkit attaches to every
// connection-scoped log line.
func ConnFields(id int32, remote string) Fields {
	return Fields{"conn_id": id, "remote": remote}
}
