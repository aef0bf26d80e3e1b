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

package buffered

import (
	"io"
	"os"
	"time"

	"github.com/sabouaram/archivefs/stream"
)

type tag uint8

const (
	absent tag = iota
	clean
	dirty
)

const defaultBufSize = 1024

// BufferedStream wraps an Underlying block device with a single-buffer
// cache, a per-byte validity tag, and deferred write-back, per §4.4.
type BufferedStream struct {
	under   Underlying
	bufSize int
	buf     []byte
	flags   []tag

	loaded    bool
	bufOffset int64

	fileSeek       int64
	dirtyHighWater int // buffer-relative, exclusive upper bound of dirty bytes

	path string
}

// New wraps under with a cache buffer of the given size (default 1024 if
// size <= 0).
func New(under Underlying, bufSize int) *BufferedStream {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &BufferedStream{
		under:   under,
		bufSize: bufSize,
		buf:     make([]byte, bufSize),
		flags:   make([]tag, bufSize),
	}
}

func (b *BufferedStream) SetPath(p string) { b.path = p }

func (b *BufferedStream) windowStartFor(pos int64) int64 {
	bs := int64(b.bufSize)
	return (pos / bs) * bs
}

func (b *BufferedStream) flushLocked() error {
	if !b.loaded {
		return nil
	}
	i := 0
	for i < b.bufSize {
		if b.flags[i] != dirty {
			i++
			continue
		}
		j := i
		for j < b.bufSize && b.flags[j] == dirty {
			j++
		}
		if _, err := b.under.WriteAt(b.buf[i:j], b.bufOffset+int64(i)); err != nil {
			return err
		}
		for k := i; k < j; k++ {
			b.flags[k] = clean
		}
		i = j
	}
	b.dirtyHighWater = 0
	return nil
}

func (b *BufferedStream) loadWindow(newOffset int64) error {
	b.bufOffset = newOffset
	b.loaded = true
	for i := range b.flags {
		b.flags[i] = absent
	}
	b.dirtyHighWater = 0

	n, err := b.under.ReadAt(b.buf, newOffset)
	for i := 0; i < n; i++ {
		b.flags[i] = clean
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (b *BufferedStream) rollback(idx []int) {
	for _, i := range idx {
		b.flags[i] = absent
	}
}

func (b *BufferedStream) ensureWindow(cur int64) error {
	if b.loaded && cur >= b.bufOffset && cur < b.bufOffset+int64(b.bufSize) {
		return nil
	}
	windowStart := b.windowStartFor(cur)
	if err := b.flushLocked(); err != nil {
		return err
	}
	return b.loadWindow(windowStart)
}

// Read implements the chunk-splitting/validity-bitmap protocol of §4.4.
func (b *BufferedStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	total := 0
	cur := b.fileSeek
	remaining := len(p)
	var tentative []int

	for remaining > 0 {
		if err := b.ensureWindow(cur); err != nil {
			b.rollback(tentative)
			return total, err
		}

		bufRel := int(cur - b.bufOffset)
		chunkLen := b.bufSize - bufRel
		if chunkLen > remaining {
			chunkLen = remaining
		}
		chunkEnd := bufRel + chunkLen

		i := bufRel
		for i < chunkEnd {
			switch b.flags[i] {
			case dirty, clean:
				p[total] = b.buf[i]
				total++
				i++
				cur++
				remaining--

			default: // absent
				gapStart := i
				gapEnd := i
				for gapEnd < chunkEnd && b.flags[gapEnd] == absent {
					gapEnd++
				}
				gapLen := gapEnd - gapStart

				n, rerr := b.under.ReadAt(b.buf[gapStart:gapEnd], b.bufOffset+int64(gapStart))
				for k := 0; k < n; k++ {
					b.flags[gapStart+k] = clean
					tentative = append(tentative, gapStart+k)
				}

				if n < gapLen {
					if gapEnd <= b.dirtyHighWater {
						for k := gapStart + n; k < gapEnd; k++ {
							b.buf[k] = 0
							b.flags[k] = clean
							tentative = append(tentative, k)
						}
					} else {
						copy(p[total:total+n], b.buf[gapStart:gapStart+n])
						total += n
						b.fileSeek = cur + int64(n)
						return total, nil
					}
				}

				if rerr != nil && rerr != io.EOF {
					b.rollback(tentative)
					return total, rerr
				}

				copy(p[total:total+gapLen], b.buf[gapStart:gapEnd])
				total += gapLen
				cur += int64(gapLen)
				remaining -= gapLen
				i = gapEnd
			}
		}
	}

	b.fileSeek = cur
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// Write implements the chunk-splitting write protocol: bytes are copied
// into the buffer and tagged dirty; the underlying stream is touched only
// on flush or buffer-window change.
func (b *BufferedStream) Write(p []byte) (int, error) {
	total := 0
	cur := b.fileSeek
	remaining := len(p)

	for remaining > 0 {
		if err := b.ensureWindow(cur); err != nil {
			return total, err
		}

		bufRel := int(cur - b.bufOffset)
		chunkLen := b.bufSize - bufRel
		if chunkLen > remaining {
			chunkLen = remaining
		}

		copy(b.buf[bufRel:bufRel+chunkLen], p[total:total+chunkLen])
		for k := bufRel; k < bufRel+chunkLen; k++ {
			b.flags[k] = dirty
		}
		if bufRel+chunkLen > b.dirtyHighWater {
			b.dirtyHighWater = bufRel + chunkLen
		}

		total += chunkLen
		cur += int64(chunkLen)
		remaining -= chunkLen
	}

	b.fileSeek = cur
	return total, nil
}

func (b *BufferedStream) getSizeLocked() int64 {
	sz, _ := b.under.Size()
	if b.loaded {
		bufEnd := b.bufOffset + int64(b.dirtyHighWater)
		if bufEnd > sz {
			sz = bufEnd
		}
	}
	return sz
}

func (b *BufferedStream) GetSize() int64 {
	return b.getSizeLocked()
}

func (b *BufferedStream) GetSizeNative() int32 {
	return int32(b.GetSize())
}

func (b *BufferedStream) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = b.fileSeek + offset
	case io.SeekEnd:
		np = b.getSizeLocked() + offset
	}
	if np < 0 {
		return 0, ErrorNegativeSeek.Error(nil)
	}
	b.fileSeek = np
	return np, nil
}

func (b *BufferedStream) SeekNative(offset int32, whence int) (int32, error) {
	p, err := b.Seek(int64(offset), whence)
	return int32(p), err
}

func (b *BufferedStream) Tell() int64       { return b.fileSeek }
func (b *BufferedStream) TellNative() int32 { return int32(b.fileSeek) }

func (b *BufferedStream) IsEOF() bool {
	return b.fileSeek >= b.getSizeLocked()
}

// SetSeekEnd truncates the underlying stream at the current cursor and
// invalidates any cached bytes past that position.
func (b *BufferedStream) SetSeekEnd() error {
	if err := b.under.Truncate(b.fileSeek); err != nil {
		return err
	}
	if b.loaded {
		for i := 0; i < b.bufSize; i++ {
			if b.bufOffset+int64(i) >= b.fileSeek {
				b.flags[i] = absent
			}
		}
		hw := 0
		for i := b.bufSize - 1; i >= 0; i-- {
			if b.flags[i] == dirty {
				hw = i + 1
				break
			}
		}
		b.dirtyHighWater = hw
	}
	return nil
}

func (b *BufferedStream) Flush() error {
	return b.flushLocked()
}

func (b *BufferedStream) Close() error {
	return b.flushLocked()
}

func (b *BufferedStream) QueryStats() (os.FileInfo, error)  { return nil, nil }
func (b *BufferedStream) SetFileTimes(_, _ time.Time) error { return nil }

func (b *BufferedStream) CreateMapping() ([]byte, error) {
	return nil, stream.ErrorMappingUnsupported.Error(nil)
}

func (b *BufferedStream) GetPath() string   { return b.path }
func (b *BufferedStream) IsReadable() bool  { return true }
func (b *BufferedStream) IsWriteable() bool { return true }
