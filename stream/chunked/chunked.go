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

	"github.com/sabouaram/archivefs/stream"
)

// DeflateSectorSize is the cache sector used for method-8 ZIP entries.
const DeflateSectorSize = 2048

// ChunkedStream provides random-access reads over a forward-only decoder
// by caching one decoded sector and asking its ParserMeta to reposition
// the decoder whenever a read crosses into a different sector.
type ChunkedStream struct {
	under  stream.Stream
	parser ParserMeta

	sectorSize int
	sector     []byte
	sectorPos  int64 // decoded offset of sector start; -1 when nothing cached
	sectorLen  int   // valid bytes currently in sector
	decoderPos int64 // decoder's true current decoded position; -1 when unset

	decodedPos int64
}

// New wraps under with parser, caching sectorSize decoded bytes at a time.
// A sectorSize <= 0 disables caching: each read asks the parser to fill
// exactly as many bytes as requested.
func New(under stream.Stream, parser ParserMeta, sectorSize int) *ChunkedStream {
	return &ChunkedStream{
		under:      under,
		parser:     parser,
		sectorSize: sectorSize,
		sectorPos:  -1,
		decoderPos: -1,
	}
}

func (c *ChunkedStream) segmentSize(remaining int) int {
	if c.sectorSize > 0 {
		return c.sectorSize
	}
	return remaining
}

func (c *ChunkedStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	total := 0
	cur := c.decodedPos
	remaining := len(p)

	for remaining > 0 {
		segSize := c.segmentSize(remaining)
		sectorStart := (cur / int64(segSize)) * int64(segSize)

		if c.sectorPos != sectorStart || c.sector == nil || len(c.sector) != segSize {
			if err := c.loadSector(sectorStart, segSize); err != nil {
				if total > 0 {
					return total, nil
				}
				return total, err
			}
		}

		rel := int(cur - sectorStart)
		if rel >= c.sectorLen {
			break
		}

		avail := c.sectorLen - rel
		n := avail
		if n > remaining {
			n = remaining
		}
		copy(p[total:total+n], c.sector[rel:rel+n])

		total += n
		cur += int64(n)
		remaining -= n

		if avail < segSize {
			break
		}
	}

	c.decodedPos = cur
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

func (c *ChunkedStream) loadSector(sectorStart int64, segSize int) error {
	prev := c.decoderPos
	if err := c.parser.TransitionSeek(c.under, prev, sectorStart); err != nil {
		return err
	}

	buf := make([]byte, segSize)
	n, err := c.parser.ReadToBuffer(c.under, buf)
	c.sector = buf
	c.sectorPos = sectorStart
	c.sectorLen = n
	c.decoderPos = sectorStart + int64(n)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Seek repositions the decoded-offset cursor without touching the
// decoder; the next Read triggers the transition lazily.
func (c *ChunkedStream) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = c.decodedPos + offset
	case io.SeekEnd:
		np = offset // caller must pass the known decoded size as a negative-from offset
	}
	if np < 0 {
		np = 0
	}
	c.decodedPos = np
	return np, nil
}

func (c *ChunkedStream) Tell() int64 { return c.decodedPos }
