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

package blockalloc

import "github.com/sabouaram/archivefs/errors"

// Handle is a caller-owned block descriptor. It is intended to live inside
// the owning file entry's meta-data (the IMG allocation slot, the ZIP data
// offset bookkeeping): the allocator never allocates Handle values itself,
// it only links/unlinks the ones it is given. This mirrors the intrusive
// list the source structure describes, without requiring Go to support
// genuine intrusive pointers.
type Handle struct {
	Start  uint64
	Length uint64

	linked bool
}

func (h *Handle) End() uint64 {
	return h.Start + h.Length
}

// Allocator is a collision-free block allocator over a flat address space.
// Units are caller-defined (2048-byte blocks for IMG, raw bytes for ZIP);
// the allocator itself only ever deals in whole units, never mixing them.
type Allocator interface {
	// FindSpace scans live blocks in ascending start order and returns the
	// first gap at or past minStart, aligned to alignment, that fits a
	// block of the given length. It does not reserve the space.
	FindSpace(length uint64, alignment uint64, minStart uint64) (start uint64, err errors.Error)

	// ObtainSpaceAt reports whether the given region is currently free. It
	// does not reserve the space; callers that get true must still call
	// PutBlock to register it before another allocation can race it (the
	// allocator has no implicit atomicity between the two calls beyond its
	// own internal mutex serializing each one).
	ObtainSpaceAt(start uint64, length uint64) bool

	// PutBlock installs h at [start, start+length) into the allocator's
	// live set. Fails with ErrorOverlap if the region collides with an
	// existing block, or ErrorHandleAlreadyLinked if h is already tracked.
	PutBlock(h *Handle, start uint64, length uint64) errors.Error

	// RemoveBlock unlinks h from the live set. No-op error if h was never
	// linked (ErrorNotFound).
	RemoveBlock(h *Handle) errors.Error

	// SetBlockSize resizes h in place. Returns false (no mutation) if the
	// new length would collide with the next block in address order.
	SetBlockSize(h *Handle, newLength uint64) bool

	// SpanSize returns the smallest address above all live blocks, i.e.
	// the minimum output length that contains every block.
	SpanSize() uint64

	// Blocks returns the live blocks in ascending start order. The slice
	// is a snapshot; mutating it does not affect the allocator.
	Blocks() []*Handle

	// Fixup records a handle that could not be placed at its on-disk
	// position because it overlapped another block during load.
	Fixup(h *Handle, length uint64)

	// ResolveFixups best-fit places every handle recorded via Fixup, in
	// the order they were recorded, clearing the fixup list. It is the
	// save-time re-layout step that keeps the archive non-overlapping even
	// when the source file was corrupted or had overlaps. Fixups go into the
	// first free gaps; blocks already placed are not moved, so gaps between
	// them that no fixup fills remain.
	ResolveFixups(alignment uint64) errors.Error
}

func New() Allocator {
	return &allocator{
		blocks: make([]*Handle, 0),
		fixup:  make([]fixupEntry, 0),
	}
}

type fixupEntry struct {
	h      *Handle
	length uint64
}
