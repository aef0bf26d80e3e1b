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
	"os"
	"sync"
	"time"

	"github.com/sabouaram/archivefs/stream"
)

// Sink is the swappable stream FileDataPresence hands back: its identity
// and seek position survive a RAM<->disk migration performed underneath it.
type Sink interface {
	stream.Stream
	Kind() SinkKind
}

type sink struct {
	mu       sync.Mutex
	mgr      *manager
	kind     SinkKind
	back     backing
	lastSize uint64
}

func (s *sink) Kind() SinkKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

func (s *sink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Read(p)
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.back.Write(p)
	if err != nil {
		return n, err
	}

	sz, szErr := s.back.Size()
	if szErr == nil {
		s.mgr.notifySizeChange(s, uint64(sz))
	}

	return n, nil
}

func (s *sink) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Seek(offset, whence)
}

func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mgr.forget(s)
	return s.back.Close()
}

func (s *sink) Tell() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _ := s.back.Seek(0, os.SEEK_CUR)
	return p
}

func (s *sink) TellNative() int32 {
	return int32(s.Tell())
}

func (s *sink) SeekNative(offset int32, whence int) (int32, error) {
	p, err := s.Seek(int64(offset), whence)
	return int32(p), err
}

func (s *sink) IsEOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, _ := s.back.Seek(0, os.SEEK_CUR)
	sz, _ := s.back.Size()
	return pos >= sz
}

func (s *sink) QueryStats() (os.FileInfo, error) {
	return nil, nil
}

func (s *sink) SetFileTimes(atime, mtime time.Time) error {
	return nil
}

func (s *sink) SetSeekEnd() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.back.Seek(0, os.SEEK_CUR)
	if err != nil {
		return err
	}
	if err := s.back.Truncate(pos); err != nil {
		return err
	}

	s.mgr.notifySizeChange(s, uint64(pos))
	return nil
}

func (s *sink) GetSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	sz, _ := s.back.Size()
	return sz
}

func (s *sink) GetSizeNative() int32 {
	return int32(s.GetSize())
}

func (s *sink) Flush() error {
	return nil
}

// CreateMapping always fails: a sink's backing can be swapped out from
// under it by the manager at any time, which would invalidate any mapping
// taken against a prior backing.
func (s *sink) CreateMapping() ([]byte, error) {
	return nil, stream.ErrorMappingUnsupported.Error(nil)
}

func (s *sink) GetPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Path()
}

func (s *sink) IsReadable() bool {
	return true
}

func (s *sink) IsWriteable() bool {
	return true
}
