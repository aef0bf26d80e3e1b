/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package buffered wraps a block-addressed underlying stream with a
// single-buffer cache, a validity bitmap over buffer bytes, and deferred
// write-back.
package buffered

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorNegativeSeek errors.CodeError = iota + errors.MinPkgStreamBuf
	ErrorFlushFailed
	ErrorReadFailed
)

func init() {
	errors.RegisterIdFctMessage(ErrorNegativeSeek, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorNegativeSeek:
		return "seek would move the cursor before the start of the stream"
	case ErrorFlushFailed:
		return "failed to flush dirty buffer bytes to the underlying stream"
	case ErrorReadFailed:
		return "failed to read from the underlying stream"
	}

	return ""
}
