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

// Package stream declares the filesystem-facing Stream surface shared by
// every stream implementation in this module (buffered, chunked, presence
// sinks, translator-backed content streams) and the OpenMode/FileOpenFailure
// vocabulary translators use to report open failures.
package stream

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorMappingUnsupported errors.CodeError = iota + errors.MinPkgStream
	ErrorNotReadable
	ErrorNotWriteable
	ErrorClosed
)

func init() {
	errors.RegisterIdFctMessage(ErrorMappingUnsupported, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorMappingUnsupported:
		return "stream does not support memory mapping"
	case ErrorNotReadable:
		return "stream was not opened for reading"
	case ErrorNotWriteable:
		return "stream was not opened for writing"
	case ErrorClosed:
		return "operation attempted on a closed stream"
	}

	return ""
}
