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

package presence

import (
	"sync"

	"github.com/sabouaram/archivefs/atomic"
	"github.com/sabouaram/archivefs/errors"
)

// Manager allocates and tracks temporary data sinks for a single translator
// instance, migrating their backing storage between RAM and host disk as a
// configured quota is crossed.
type Manager interface {
	// AllocateTemporaryDataSink returns a new sink. minExpectedSize is a
	// hint, not a reservation: the sink starts empty regardless of where it
	// is placed, but an estimate at or above FileMaxInRAM routes straight to disk
	// rather than bouncing through RAM first.
	AllocateTemporaryDataSink(minExpectedSize uint64) (Sink, errors.Error)

	// TotalRAMBytes reports the current sum of sizes across all sinks
	// presently backed by RAM.
	TotalRAMBytes() uint64
}

func New(cfg Config) (Manager, errors.Error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &manager{
		cfg:      cfg,
		sinks:    atomic.NewMapTyped[*sink, uint64](),
		totalRAM: atomic.NewValue[uint64](),
	}, nil
}

type manager struct {
	mu       sync.Mutex
	cfg      Config
	totalRAM atomic.Value[uint64]
	sinks    atomic.MapTyped[*sink, uint64] // sink -> last size counted toward totalRAM (0 if on disk)
}

func (m *manager) TotalRAMBytes() uint64 {
	return m.totalRAM.Load()
}

func (m *manager) quotaAllows(additional uint64) bool {
	if m.cfg.MaxRAMQuota == nil {
		return true
	}
	return m.totalRAM.Load()+additional <= *m.cfg.MaxRAMQuota
}

func (m *manager) AllocateTemporaryDataSink(minExpectedSize uint64) (Sink, errors.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wantsRAM := m.cfg.FileMaxInRAM == 0 || minExpectedSize < m.cfg.FileMaxInRAM
	if wantsRAM && !m.quotaAllows(minExpectedSize) {
		wantsRAM = false
	}

	s := &sink{mgr: m}

	if wantsRAM {
		s.kind = Memory
		s.back = newMemBacking()
		m.sinks.Store(s, 0)
	} else {
		fb, err := newFileBacking(m.cfg.ScratchDir)
		if err != nil {
			return nil, ErrorResourcesExhausted.ErrorParent(err)
		}
		s.kind = LocalFile
		s.back = fb
		m.sinks.Store(s, 0)
	}

	return s, nil
}

// notifySizeChange is called by a sink, while it holds its own lock,
// whenever its size may have changed. It decides whether the sink must
// migrate between RAM and disk and performs the migration in place so the
// sink's identity and current seek offset are preserved.
func (m *manager) notifySizeChange(s *sink, newSize uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, tracked := m.sinks.Load(s)
	if !tracked {
		return
	}

	switch s.kind {
	case Memory:
		if m.cfg.FileMaxInRAM != 0 && newSize > m.cfg.FileMaxInRAM {
			m.migrateToDisk(s, prev)
			return
		}
		if m.cfg.MaxRAMQuota != nil && m.totalRAM.Load()-prev+newSize > *m.cfg.MaxRAMQuota {
			m.migrateToDisk(s, prev)
			return
		}
		m.totalRAM.Store(m.totalRAM.Load() - prev + newSize)
		m.sinks.Store(s, newSize)

	case LocalFile:
		var threshold uint64
		if m.cfg.FileMaxInRAM != 0 {
			threshold = uint64(float64(m.cfg.FileMaxInRAM) * m.cfg.PercFileMemoryFadeIn)
		}
		if newSize <= threshold && m.quotaAllows(newSize) {
			m.migrateToRAM(s, newSize)
		}
	}
}

// migrateToDisk moves a RAM-backed sink's bytes onto a fresh file backing,
// removing its prior contribution from totalRAM. Performed holding m.mu;
// the sink already holds its own lock from the Write/SetSeekEnd call that
// triggered this.
func (m *manager) migrateToDisk(s *sink, prevRAMContribution uint64) {
	mb, ok := s.back.(*memBacking)
	if !ok {
		return
	}

	fb, err := newFileBacking(m.cfg.ScratchDir)
	if err != nil {
		// cannot migrate; leave the sink on RAM rather than losing data,
		// even though this may exceed FileMaxInRAM until retried.
		return
	}

	pos := mb.pos
	if _, werr := fb.Write(mb.Bytes()); werr != nil {
		_ = fb.Close()
		return
	}
	if _, serr := fb.Seek(pos, 0); serr != nil {
		_ = fb.Close()
		return
	}

	s.back = fb
	s.kind = LocalFile

	m.totalRAM.Store(m.totalRAM.Load() - prevRAMContribution)
	m.sinks.Store(s, 0)
}

// migrateToRAM moves a disk-backed sink's bytes into a fresh memory
// backing once its size has fallen back below the fade-in threshold.
func (m *manager) migrateToRAM(s *sink, size uint64) {
	pos, err := s.back.Seek(0, 1)
	if err != nil {
		return
	}
	if _, err := s.back.Seek(0, 0); err != nil {
		return
	}

	buf := make([]byte, size)
	if _, err := readFull(s.back, buf); err != nil {
		return
	}

	mb := newMemBacking()
	if _, werr := mb.Write(buf); werr != nil {
		return
	}
	if _, serr := mb.Seek(pos, 0); serr != nil {
		return
	}

	old := s.back
	s.back = mb
	s.kind = Memory
	_ = old.Close()

	m.totalRAM.Store(m.totalRAM.Load() + size)
	m.sinks.Store(s, size)
}

func (m *manager) forget(s *sink) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sinks.Load(s); ok && s.kind == Memory {
		m.totalRAM.Store(m.totalRAM.Load() - prev)
	}
	m.sinks.Delete(s)
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if total == len(buf) {
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}
