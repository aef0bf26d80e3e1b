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
	"github.com/sabouaram/archivefs/blockalloc"
	"github.com/sabouaram/archivefs/translator"
)

// BlockSize is the fixed allocation unit of IMG archives.
const BlockSize = 2048

// Codec is the optional per-translator compression hook installed over an
// entry's bytes. A nil Codec means entries are stored raw.
type Codec interface {
	Compress(dst []byte, src []byte) ([]byte, error)
	Decompress(dst []byte, src []byte, uncompressedSize int) ([]byte, error)
	Name() string
}

// fileMeta is the Node.Meta value attached to every file entry loaded from
// or staged into an IMG archive. Only the fields relevant to the entry's
// current DataState are meaningful; the rest are left at their zero value,
// matching the "tagged variant with per-variant fields" guidance instead of
// a struct bristling with optional pointers.
type fileMeta struct {
	state *translator.DataStateHolder

	// ARCHIVED-only: the live placement of the entry's bytes inside the
	// content file, in 2048-byte blocks.
	handle *blockalloc.Handle

	// archivedSize is the on-disk (still possibly compressed) byte length
	// implied by the directory record at load time, rounded down to an
	// exact multiple of BlockSize only when expandedSize is absent.
	archivedSize uint64

	// compressed records whether the archived bytes are run through codec
	// before they become usable PRESENT bytes.
	compressed bool

	name string
}

func newFileMeta() *fileMeta {
	return &fileMeta{state: translator.NewDataStateHolder(translator.Archived)}
}
