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

package translator

import (
	"sync"

	"github.com/sabouaram/archivefs/presence"
)

// DataState is the ternary tag governing where a file entry's bytes
// currently live and whether they are still codec-encoded.
type DataState uint8

const (
	Archived DataState = iota
	PresentCompressed
	Present
)

func (s DataState) String() string {
	switch s {
	case Archived:
		return "archived"
	case PresentCompressed:
		return "present-compressed"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// DataStateHolder guards transitions between data-state values plus the
// conditional validity of data_stream per §4.5/§5: every inspection or
// mutation of state or sink takes the holder's lock, so a touch-extract
// running concurrently with a save-phase conversion never observes a
// half-migrated entry.
type DataStateHolder struct {
	mu    sync.RWMutex
	state DataState
	sink  presence.Sink
}

func NewDataStateHolder(initial DataState) *DataStateHolder {
	return &DataStateHolder{state: initial}
}

func (h *DataStateHolder) State() DataState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *DataStateHolder) Sink() presence.Sink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sink
}

// EnterPresentCompressed installs sink as the spill destination for
// still-compressed bytes, used by the save-phase cache step.
func (h *DataStateHolder) EnterPresentCompressed(sink presence.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = PresentCompressed
	h.sink = sink
}

// EnterPresent installs sink as the owner of fully decompressed bytes,
// used by extraction and decompress-on-write.
func (h *DataStateHolder) EnterPresent(sink presence.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = Present
	h.sink = sink
}

// EnterArchived releases the current sink (if any) and returns it to the
// caller for closing, since ownership of OS resources belongs outside the
// lock.
func (h *DataStateHolder) EnterArchived() presence.Sink {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.sink
	h.state = Archived
	h.sink = nil
	return old
}
