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

import (
	"sort"
	"sync"

	"github.com/sabouaram/archivefs/errors"
	"github.com/sabouaram/archivefs/errors/pool"
)

type allocator struct {
	mu     sync.Mutex
	blocks []*Handle
	fixup  []fixupEntry
}

func alignUp(v, alignment uint64) uint64 {
	if alignment <= 1 {
		return v
	}
	if r := v % alignment; r != 0 {
		return v + (alignment - r)
	}
	return v
}

// indexFor returns the index at which h should be inserted to keep blocks
// sorted by Start ascending.
func (a *allocator) indexFor(start uint64) int {
	return sort.Search(len(a.blocks), func(i int) bool {
		return a.blocks[i].Start >= start
	})
}

func (a *allocator) overlaps(start, length uint64, skip *Handle) bool {
	end := start + length
	for _, b := range a.blocks {
		if b == skip {
			continue
		}
		if start < b.End() && b.Start < end {
			return true
		}
	}
	return false
}

func (a *allocator) FindSpace(length uint64, alignment uint64, minStart uint64) (uint64, errors.Error) {
	if length == 0 {
		return 0, ErrorParamsEmpty.Error(nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	candidate := alignUp(minStart, alignment)

	for _, b := range a.blocks {
		if b.End() <= candidate {
			// block lies entirely behind candidate; irrelevant
			continue
		}
		if candidate+length <= b.Start {
			return candidate, nil
		}
		next := b.End()
		if next > candidate {
			candidate = alignUp(next, alignment)
		}
	}

	return candidate, nil
}

func (a *allocator) ObtainSpaceAt(start uint64, length uint64) bool {
	if length == 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return !a.overlaps(start, length, nil)
}

func (a *allocator) PutBlock(h *Handle, start uint64, length uint64) errors.Error {
	if h == nil || length == 0 {
		return ErrorParamsEmpty.Error(nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if h.linked {
		return ErrorHandleAlreadyLinked.Error(nil)
	}

	if a.overlaps(start, length, nil) {
		return ErrorOverlap.Error(nil)
	}

	h.Start = start
	h.Length = length
	h.linked = true

	idx := a.indexFor(start)
	a.blocks = append(a.blocks, nil)
	copy(a.blocks[idx+1:], a.blocks[idx:])
	a.blocks[idx] = h

	return nil
}

func (a *allocator) RemoveBlock(h *Handle) errors.Error {
	if h == nil {
		return ErrorParamsEmpty.Error(nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, b := range a.blocks {
		if b == h {
			a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
			h.linked = false
			return nil
		}
	}

	return ErrorNotFound.Error(nil)
}

func (a *allocator) SetBlockSize(h *Handle, newLength uint64) bool {
	if h == nil || !h.linked {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.overlaps(h.Start, newLength, h) {
		return false
	}

	h.Length = newLength
	return true
}

func (a *allocator) SpanSize() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var span uint64
	for _, b := range a.blocks {
		if e := b.End(); e > span {
			span = e
		}
	}
	return span
}

func (a *allocator) Blocks() []*Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := make([]*Handle, len(a.blocks))
	copy(res, a.blocks)
	return res
}

func (a *allocator) Fixup(h *Handle, length uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fixup = append(a.fixup, fixupEntry{h: h, length: length})
}

// ResolveFixups places every pending fixup independently, collecting
// failures in a pool rather than aborting on the first one so a single
// unplaceable entry doesn't block the rest from landing.
func (a *allocator) ResolveFixups(alignment uint64) errors.Error {
	a.mu.Lock()
	pending := a.fixup
	a.fixup = make([]fixupEntry, 0)
	a.mu.Unlock()

	failed := pool.New()
	for _, f := range pending {
		start, err := a.FindSpace(f.length, alignment, 0)
		if err != nil {
			failed.Add(err)
			continue
		}
		if err := a.PutBlock(f.h, start, f.length); err != nil {
			failed.Add(err)
		}
	}

	if failed.Len() == 0 {
		return nil
	}
	return ErrorFixupFailed.Error(failed.Slice()...)
}
