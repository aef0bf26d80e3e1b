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

package stream

import (
	"io"
	"os"
	"time"
)

// Stream is the capability set every stream implementation in this module
// exposes to upper layers: buffered wrappers, swappable presence sinks, IMG
// data-sector streams, ZIP compressed/uncompressed streams. Two integer
// widths are offered for seek/tell/size because on-disk offsets may exceed
// 32 bits while some callers only ever need the narrower legacy width.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Tell returns the current cursor position.
	Tell() int64
	// TellNative returns the current cursor position truncated to 32 bits.
	TellNative() int32
	// SeekNative is Seek with a 32-bit offset, for legacy callers.
	SeekNative(offset int32, whence int) (int32, error)

	// IsEOF reports whether the cursor is at or past the end of the stream.
	IsEOF() bool

	// QueryStats returns the stream's stat information, where available.
	QueryStats() (os.FileInfo, error)
	// SetFileTimes updates the backing file's access/modification times,
	// where supported; a no-op for streams with no backing file time.
	SetFileTimes(atime, mtime time.Time) error

	// SetSeekEnd truncates the stream at the current cursor position.
	SetSeekEnd() error

	// GetSize returns the stream's current size.
	GetSize() int64
	// GetSizeNative returns the stream's current size truncated to 32 bits.
	GetSizeNative() int32

	// Flush commits any buffered writes to the underlying storage.
	Flush() error

	// CreateMapping returns a memory mapping of the stream's contents, if
	// the implementation supports it. Streams that can be swapped out from
	// under the caller (presence sinks) refuse with ErrorMappingUnsupported
	// since a mapping could outlive a swap and observe stale memory.
	CreateMapping() ([]byte, error)

	// GetPath returns a human-readable path identifying the stream, or an
	// empty string for streams with no backing path (in-memory sinks).
	GetPath() string

	IsReadable() bool
	IsWriteable() bool
}
