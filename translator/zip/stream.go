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

package zip

import (
	"io"
	"os"
	"time"

	"github.com/sabouaram/archivefs/stream"
	"github.com/sabouaram/archivefs/stream/chunked"
)

// compressedStream provides random-access read-only access to an entry
// still in the ARCHIVED state, decoding through a ChunkedStream built from
// the compression method's parser. Writes are illegal: callers extract to
// PRESENT first.
type compressedStream struct {
	under *chunked.ChunkedStream
	size  int64
}

func newCompressedStream(file *fileStream, method uint16, dataOffset int64, usize int64) *compressedStream {
	var (
		parser chunked.ParserMeta
		sector int
	)
	switch method {
	case MethodDeflate:
		parser = chunked.NewDeflateParser(dataOffset)
		sector = chunked.DeflateSectorSize
	default:
		parser = chunked.NewStoreParser(dataOffset)
		sector = 0
	}
	return &compressedStream{
		under: chunked.New(file, parser, sector),
		size:  usize,
	}
}

func (c *compressedStream) Read(p []byte) (int, error) {
	if c.under.Tell() >= c.size {
		return 0, io.EOF
	}
	max := c.size - c.under.Tell()
	if int64(len(p)) > max {
		p = p[:max]
	}
	return c.under.Read(p)
}

func (c *compressedStream) Write(p []byte) (int, error) { return 0, ErrorReadOnly.Error(nil) }

func (c *compressedStream) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = c.under.Tell() + offset
	case io.SeekEnd:
		np = c.size + offset
	}
	if np < 0 || np > c.size {
		return c.under.Tell(), ErrorOutOfBounds.Error(nil)
	}
	return c.under.Seek(np, io.SeekStart)
}

func (c *compressedStream) Close() error { return nil }
func (c *compressedStream) Tell() int64  { return c.under.Tell() }
func (c *compressedStream) TellNative() int32 { return int32(c.under.Tell()) }
func (c *compressedStream) SeekNative(offset int32, whence int) (int32, error) {
	p, err := c.Seek(int64(offset), whence)
	return int32(p), err
}
func (c *compressedStream) IsEOF() bool                      { return c.under.Tell() >= c.size }
func (c *compressedStream) QueryStats() (os.FileInfo, error) { return nil, nil }
func (c *compressedStream) SetFileTimes(_, _ time.Time) error { return nil }
func (c *compressedStream) SetSeekEnd() error                 { return ErrorReadOnly.Error(nil) }
func (c *compressedStream) GetSize() int64                    { return c.size }
func (c *compressedStream) GetSizeNative() int32              { return int32(c.size) }
func (c *compressedStream) Flush() error                      { return nil }
func (c *compressedStream) CreateMapping() ([]byte, error) {
	return nil, stream.ErrorMappingUnsupported.Error(nil)
}
func (c *compressedStream) GetPath() string   { return "" }
func (c *compressedStream) IsReadable() bool  { return true }
func (c *compressedStream) IsWriteable() bool { return false }

var _ stream.Stream = (*compressedStream)(nil)
