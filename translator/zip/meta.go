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

import "github.com/sabouaram/archivefs/translator"

// fileMeta carries the central-directory fields for one ZIP entry plus the
// data-state bookkeeping shared with the IMG translator. localHeaderOff,
// dataOffset and sizeRealIsVerified are only trustworthy while the entry has
// not been written to since load; any write invalidates all three.
type fileMeta struct {
	state *translator.DataStateHolder

	name string

	compression  uint16
	flags        uint16
	modTime      uint16
	modDate      uint16
	crc32        uint32
	csize        uint32
	usize        uint32
	externalAttr uint32
	diskID       uint16

	localHeaderOff uint32
	dataOffset     int64
	haveOffsets    bool

	sizeRealIsVerified bool
}

func newFileMeta() *fileMeta {
	return &fileMeta{state: translator.NewDataStateHolder(translator.Archived)}
}
