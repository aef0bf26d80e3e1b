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
	"encoding/binary"
	"hash/adler32"

	"github.com/pierrec/lz4/v4"
)

// xboxLzoMagic is the 4-byte signature opening a compressed entry, stored
// little-endian on disk (bytes CE,A1,A3,67; see decode below).
const xboxLzoMagic = 0x67A3A1CE

// blockUnknownField is the constant value the format asserts for every
// block's first u32. The decoder in the source treats uncompressed_size and
// compressed_size as interchangeable for this field's validation despite
// the compressor writing compressed_size into the uncompressed_size slot;
// this is preserved bit-for-bit rather than reinterpreted (see open
// question on this field).
const blockUnknownField = 4

// XboxLzoCodec implements the optional XBOX LZO entry codec. There is no
// real LZO library available in this module's dependency set; the payload
// of each block is (de)compressed with lz4's block API, the same
// substitution already used for the whole-archive Lzo codec in
// archive/compress. The outer magic/checksum/block framing below is bit-
// exact to the documented format regardless of which codec fills a block.
type XboxLzoCodec struct {
	// VerifyChecksum enables adler32 verification of decoded output against
	// the header checksum; disabled by default per the documented format.
	VerifyChecksum bool
}

func (c *XboxLzoCodec) Name() string { return "xbox-lzo" }

// Decompress parses the outer block stream and fills dst (or a freshly
// grown buffer if dst is too small) with decoded bytes.
func (c *XboxLzoCodec) Decompress(dst []byte, src []byte, uncompressedSize int) ([]byte, error) {
	if len(src) < 12 {
		return nil, ErrorBadBlockHeader.Error(nil)
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	if magic != xboxLzoMagic {
		return nil, ErrorBadBlockHeader.Error(nil)
	}
	checksum := binary.LittleEndian.Uint32(src[4:8])
	blockSize := binary.LittleEndian.Uint32(src[8:12])

	body := src[12:]
	if uint32(len(body)) < blockSize {
		return nil, ErrorBadBlockHeader.Error(nil)
	}
	body = body[:blockSize]

	if cap(dst) < uncompressedSize {
		dst = make([]byte, uncompressedSize)
	}
	dst = dst[:0]

	pos := 0
	for pos < len(body) {
		if pos+12 > len(body) {
			return nil, ErrorBadBlockHeader.Error(nil)
		}
		unknown := binary.LittleEndian.Uint32(body[pos : pos+4])
		uSize := binary.LittleEndian.Uint32(body[pos+4 : pos+8])
		cSize := binary.LittleEndian.Uint32(body[pos+8 : pos+12])
		if unknown != blockUnknownField || uSize != cSize {
			return nil, ErrorBadBlockHeader.Error(nil)
		}
		pos += 12
		if pos+int(cSize) > len(body) {
			return nil, ErrorBadBlockHeader.Error(nil)
		}
		payload := body[pos : pos+int(cSize)]
		pos += int(cSize)

		out, err := decompressGrowing(payload)
		if err != nil {
			return nil, ErrorCompressedSizeMismatch.ErrorParent(err)
		}
		dst = append(dst, out...)
	}

	if c.VerifyChecksum {
		if adler32.Checksum(dst) != checksum {
			return nil, ErrorCompressedSizeMismatch.Error(nil)
		}
	}

	return dst, nil
}

// decompressGrowing drives lz4.UncompressBlock, doubling the scratch buffer
// and retrying when the codec reports an output-buffer overflow, per the
// documented decoder behavior.
func decompressGrowing(payload []byte) ([]byte, error) {
	size := len(payload) * 4
	if size < 256 {
		size = 256
	}
	for attempt := 0; attempt < 8; attempt++ {
		buf := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, buf)
		if err == nil {
			return buf[:n], nil
		}
		if err == lz4.ErrInvalidSourceShortBuffer {
			size *= 2
			continue
		}
		return nil, err
	}
	return nil, ErrorBadBlockHeader.Error(nil)
}

// Compress frames src as a single-block XBOX LZO stream.
func (c *XboxLzoCodec) Compress(dst []byte, src []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(src))
	cbuf := make([]byte, bound)
	ht := make([]int, 1<<16)
	n, err := lz4.CompressBlock(src, cbuf, ht)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// incompressible payload: lz4 refuses to emit a shrinking block.
		n = len(src)
		if cap(cbuf) < n {
			cbuf = make([]byte, n)
		}
		copy(cbuf, src)
	}
	payload := cbuf[:n]

	blockHeader := make([]byte, 12)
	binary.LittleEndian.PutUint32(blockHeader[0:4], blockUnknownField)
	binary.LittleEndian.PutUint32(blockHeader[4:8], uint32(n))
	binary.LittleEndian.PutUint32(blockHeader[8:12], uint32(n))

	body := append(blockHeader, payload...)

	out := make([]byte, 0, 12+len(body))
	var outer [12]byte
	binary.LittleEndian.PutUint32(outer[0:4], xboxLzoMagic)
	binary.LittleEndian.PutUint32(outer[4:8], adler32.Checksum(src))
	binary.LittleEndian.PutUint32(outer[8:12], uint32(len(body)))
	out = append(out, outer[:]...)
	out = append(out, body...)

	if cap(dst) >= len(out) {
		dst = dst[:0]
		dst = append(dst, out...)
		return dst, nil
	}
	return out, nil
}
