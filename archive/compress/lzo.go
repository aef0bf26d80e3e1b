/*
 *  MIT License
 *
 *  Copyright (c) 2020 Nicolas JUHEL
 *
 *  Permission is hereby granted, free of charge, to any person obtaining a copy
 *  of this software and associated documentation files (the "Software"), to deal
 *  in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *  copies of the Software, and to permit persons to whom the Software is
 *  furnished to do so, subject to the following conditions:
 *
 *  The above copyright notice and this permission notice shall be included in all
 *  copies or substantial portions of the Software.
 *
 *  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *  SOFTWARE.
 *
 */

package compress

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lzoChunkSize is the uncompressed chunk size used to frame the Lzo
// whole-stream codec. There is no real LZO library in this module's
// dependency set (LZO is an external collaborator the source treats as
// opaque); lz4's block API is used as the nearest available ecosystem
// substitute, chunked so the stream never needs the entire payload in
// memory. This framing is private to this package: it is unrelated to
// the IMG translator's XBOX LZO block format, which has its own
// documented on-disk layout and is parsed independently.
const lzoChunkSize = 64 * 1024

type lzoReader struct {
	src     io.Reader
	pending *bytes.Reader
	hdr     [4]byte
	cbuf    []byte
	ubuf    []byte
}

func newLzoReader(r io.Reader) io.ReadCloser {
	return &lzoReader{src: r}
}

func (l *lzoReader) Read(p []byte) (int, error) {
	for l.pending == nil || l.pending.Len() == 0 {
		if _, err := io.ReadFull(l.src, l.hdr[:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}

		clen := int(binary.LittleEndian.Uint32(l.hdr[:]))
		if clen == 0 {
			return 0, io.EOF
		}

		if cap(l.cbuf) < clen {
			l.cbuf = make([]byte, clen)
		}
		l.cbuf = l.cbuf[:clen]
		if _, err := io.ReadFull(l.src, l.cbuf); err != nil {
			return 0, err
		}

		if cap(l.ubuf) < lzoChunkSize {
			l.ubuf = make([]byte, lzoChunkSize)
		}

		n, err := lz4.UncompressBlock(l.cbuf, l.ubuf)
		if err != nil {
			return 0, err
		}

		l.pending = bytes.NewReader(l.ubuf[:n])
	}

	return l.pending.Read(p)
}

func (l *lzoReader) Close() error {
	return nil
}

type lzoWriter struct {
	dst  io.Writer
	buf  bytes.Buffer
	cbuf []byte
	ht   []int
}

func newLzoWriter(w io.Writer) io.WriteCloser {
	return &lzoWriter{dst: w, ht: make([]int, 1<<16)}
}

func (l *lzoWriter) Write(p []byte) (int, error) {
	n := len(p)
	l.buf.Write(p)

	for l.buf.Len() >= lzoChunkSize {
		if err := l.flushChunk(l.buf.Next(lzoChunkSize)); err != nil {
			return 0, err
		}
	}

	return n, nil
}

func (l *lzoWriter) flushChunk(chunk []byte) error {
	if cap(l.cbuf) < lz4.CompressBlockBound(len(chunk)) {
		l.cbuf = make([]byte, lz4.CompressBlockBound(len(chunk)))
	}

	for i := range l.ht {
		l.ht[i] = 0
	}

	cn, err := lz4.CompressBlock(chunk, l.cbuf, l.ht)
	if err != nil {
		return err
	}
	if cn == 0 {
		// incompressible chunk: lz4 refuses to emit a block that would not
		// shrink the input; fall back to storing it raw inside one chunk.
		cn = len(chunk)
		if cap(l.cbuf) < cn {
			l.cbuf = make([]byte, cn)
		}
		copy(l.cbuf, chunk)
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(cn))
	if _, err := l.dst.Write(hdr[:]); err != nil {
		return err
	}
	_, err = l.dst.Write(l.cbuf[:cn])
	return err
}

func (l *lzoWriter) Close() error {
	for l.buf.Len() > 0 {
		n := l.buf.Len()
		if n > lzoChunkSize {
			n = lzoChunkSize
		}
		if err := l.flushChunk(l.buf.Next(n)); err != nil {
			return err
		}
	}

	var hdr [4]byte
	_, err := l.dst.Write(hdr[:])
	return err
}
