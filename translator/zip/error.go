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

// Package zip implements the ZIP archive translator: EOCD/central/local
// header parsing, store and deflate entry codecs, and the from-scratch
// rewrite save procedure driven by serialization order.
package zip

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorNoEOCD errors.CodeError = iota + errors.MinPkgZip
	ErrorBadEOCD
	ErrorBadCentralHeader
	ErrorBadLocalHeader
	ErrorUnsupportedMethod
	ErrorCRCMismatch
	ErrorReadOnly
	ErrorOutOfBounds
)

func init() {
	errors.RegisterIdFctMessage(ErrorNoEOCD, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorNoEOCD:
		return "end-of-central-directory signature not found"
	case ErrorBadEOCD:
		return "end-of-central-directory record could not be decoded"
	case ErrorBadCentralHeader:
		return "central directory header signature or fields are invalid"
	case ErrorBadLocalHeader:
		return "local file header signature or fields are invalid"
	case ErrorUnsupportedMethod:
		return "entry compression method is not store or deflate"
	case ErrorCRCMismatch:
		return "decoded bytes do not match the entry's recorded CRC32"
	case ErrorReadOnly:
		return "writes are not permitted on an archived entry; extract to present first"
	case ErrorOutOfBounds:
		return "read or seek would move past the entry's uncompressed size"
	}

	return ""
}
