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

package img

import (
	"io"
	"os"
	"time"

	"github.com/sabouaram/archivefs/stream"
)

// archivedStream provides a per-stream seek cursor over the raw,
// uninterpreted bytes of an entry still in the ARCHIVED state. Reads
// translate the cursor to base+cursor, bound-checked against limit; no
// implicit decompression happens here even if the entry is codec-encoded.
// Writes are illegal: callers must extract to PRESENT first.
type archivedStream struct {
	content ContentFile
	base    int64
	limit   int64 // exclusive upper bound, relative to base
	pos     int64
}

func newArchivedStream(content ContentFile, base, length int64) *archivedStream {
	return &archivedStream{content: content, base: base, limit: length}
}

func (a *archivedStream) Read(p []byte) (int, error) {
	if a.pos >= a.limit {
		return 0, io.EOF
	}
	max := a.limit - a.pos
	if int64(len(p)) > max {
		p = p[:max]
	}
	n, err := a.content.ReadAt(p, a.base+a.pos)
	a.pos += int64(n)
	return n, err
}

func (a *archivedStream) Write(p []byte) (int, error) {
	return 0, ErrorArchivedReadOnly.Error(nil)
}

func (a *archivedStream) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = a.pos + offset
	case io.SeekEnd:
		np = a.limit + offset
	}
	if np < 0 || np > a.limit {
		return a.pos, ErrorOutOfBounds.Error(nil)
	}
	a.pos = np
	return np, nil
}

func (a *archivedStream) Close() error { return nil }
func (a *archivedStream) Tell() int64  { return a.pos }
func (a *archivedStream) TellNative() int32 { return int32(a.pos) }
func (a *archivedStream) SeekNative(offset int32, whence int) (int32, error) {
	p, err := a.Seek(int64(offset), whence)
	return int32(p), err
}
func (a *archivedStream) IsEOF() bool                      { return a.pos >= a.limit }
func (a *archivedStream) QueryStats() (os.FileInfo, error) { return nil, nil }
func (a *archivedStream) SetFileTimes(_, _ time.Time) error { return nil }
func (a *archivedStream) SetSeekEnd() error                 { return ErrorArchivedReadOnly.Error(nil) }
func (a *archivedStream) GetSize() int64                    { return a.limit }
func (a *archivedStream) GetSizeNative() int32              { return int32(a.limit) }
func (a *archivedStream) Flush() error                      { return nil }
func (a *archivedStream) CreateMapping() ([]byte, error) {
	return nil, stream.ErrorMappingUnsupported.Error(nil)
}
func (a *archivedStream) GetPath() string   { return "" }
func (a *archivedStream) IsReadable() bool  { return true }
func (a *archivedStream) IsWriteable() bool { return false }

var _ stream.Stream = (*archivedStream)(nil)
