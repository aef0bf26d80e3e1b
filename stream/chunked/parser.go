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

package chunked

import (
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/sabouaram/archivefs/stream"
)

// ParserMeta is the codec-specific driver a ChunkedStream delegates to.
// TransitionSeek repositions the decoder between two decoded-offset
// sectors; ReadToBuffer fills one sector from the current decoder
// position. Implementations decide whether the offsets passed to
// TransitionSeek mean decoded or raw underlying-stream positions.
type ParserMeta interface {
	TransitionSeek(under stream.Stream, prevPos, newPos int64) error
	ReadToBuffer(under stream.Stream, buf []byte) (int, error)
}

// streamReader adapts a stream.Stream to io.Reader for consumption by
// compress/flate, which only speaks io.Reader.
type streamReader struct{ s stream.Stream }

func (r *streamReader) Read(p []byte) (int, error) { return r.s.Read(p) }

// DeflateParser drives a raw (no zlib wrapper) deflate decoder over an
// underlying stream whose compressed data begins at baseOffset, per the
// transition/refill protocol described for ZIP method-8 entries.
type DeflateParser struct {
	baseOffset int64
	dec        io.ReadCloser
}

// NewDeflateParser returns a parser reading compressed data starting at
// baseOffset within the underlying stream.
func NewDeflateParser(baseOffset int64) *DeflateParser {
	return &DeflateParser{baseOffset: baseOffset}
}

func (d *DeflateParser) reset(under stream.Stream) error {
	if d.dec != nil {
		_ = d.dec.Close()
		d.dec = nil
	}
	if _, err := under.Seek(d.baseOffset, io.SeekStart); err != nil {
		return err
	}
	d.dec = flate.NewReader(&streamReader{s: under})
	return nil
}

// TransitionSeek resets the decoder and rewinds the underlying cursor to
// baseOffset on any backward move, then skips forward by reading and
// discarding decoded output with a scratch buffer; forward-only moves
// skip directly from the current decoder position.
func (d *DeflateParser) TransitionSeek(under stream.Stream, prevPos, newPos int64) error {
	if d.dec == nil || prevPos < 0 || newPos < prevPos {
		if err := d.reset(under); err != nil {
			return ErrorTransitionFailed.Error(err)
		}
		prevPos = 0
	}

	remaining := newPos - prevPos
	if remaining <= 0 {
		return nil
	}

	scratch := make([]byte, 1024)
	for remaining > 0 {
		n := int64(len(scratch))
		if n > remaining {
			n = remaining
		}
		rn, err := io.ReadFull(d.dec, scratch[:n])
		remaining -= int64(rn)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return nil
			}
			return ErrorTransitionFailed.Error(err)
		}
	}
	return nil
}

// ReadToBuffer drives the decoder until buf is full or the compressed
// stream is exhausted.
func (d *DeflateParser) ReadToBuffer(under stream.Stream, buf []byte) (int, error) {
	if d.dec == nil {
		if err := d.reset(under); err != nil {
			return 0, ErrorDecodeFailed.Error(err)
		}
	}
	n, err := io.ReadFull(d.dec, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, ErrorDecodeFailed.Error(err)
	}
	return n, nil
}

// StoreParser is the identity driver for uncompressed (method 0) entries:
// it seeks the underlying stream directly and reads through untouched, so
// ChunkedStream's sector cache degenerates to a pass-through.
type StoreParser struct {
	baseOffset int64
}

// NewStoreParser returns a parser for uncompressed data starting at
// baseOffset within the underlying stream.
func NewStoreParser(baseOffset int64) *StoreParser {
	return &StoreParser{baseOffset: baseOffset}
}

func (s *StoreParser) TransitionSeek(under stream.Stream, _, newPos int64) error {
	_, err := under.Seek(s.baseOffset+newPos, io.SeekStart)
	return err
}

func (s *StoreParser) ReadToBuffer(under stream.Stream, buf []byte) (int, error) {
	n, err := io.ReadFull(under, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	return n, err
}
