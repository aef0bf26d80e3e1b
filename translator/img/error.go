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

// Package img implements the Rockstar IMG v1/v2 archive translator: the
// twin-file and single-file on-disk block layouts, the optional XBOX LZO
// entry codec, and the save-time layout rebuild driven by blockalloc.
package img

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorBadHeader errors.CodeError = iota + errors.MinPkgImg
	ErrorBadRecord
	ErrorNameTooLong
	ErrorBlockOverflow
	ErrorCompressedSizeMismatch
	ErrorBadBlockHeader
	ErrorLayoutFailed
	ErrorArchivedReadOnly
	ErrorOutOfBounds
)

func init() {
	errors.RegisterIdFctMessage(ErrorBadHeader, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorBadHeader:
		return "archive header signature or file count is invalid"
	case ErrorBadRecord:
		return "directory record could not be decoded"
	case ErrorNameTooLong:
		return "entry name exceeds the 24-byte on-disk field"
	case ErrorBlockOverflow:
		return "entry claims more blocks than the archive size allows"
	case ErrorCompressedSizeMismatch:
		return "XBOX LZO block header reports mismatched compressed/uncompressed size"
	case ErrorBadBlockHeader:
		return "XBOX LZO block header failed validation"
	case ErrorLayoutFailed:
		return "save-time block layout could not be computed"
	case ErrorArchivedReadOnly:
		return "writes are not permitted on an archived entry; extract to present first"
	case ErrorOutOfBounds:
		return "read or seek would move past the entry's reserved block span"
	}

	return ""
}
