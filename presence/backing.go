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
	"io"
	"os"

	"github.com/sabouaram/archivefs/file/progress"
	"github.com/sabouaram/archivefs/ioutils/iowrapper"
)

// SinkKind distinguishes where a sink's bytes currently live.
type SinkKind uint8

const (
	Memory SinkKind = iota
	LocalFile
)

func (k SinkKind) String() string {
	if k == LocalFile {
		return "local-file"
	}
	return "memory"
}

// backing is the minimal storage surface a sink swaps between. Both
// implementations are plain io.ReadWriteSeeker plus size/truncate/close,
// deliberately narrower than the full stream.Stream surface: the sink
// itself is what implements stream.Stream, translating its richer API onto
// whichever backing is currently installed.
type backing interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Size() (int64, error)
	Truncate(size int64) error
	Path() string
}

type memBacking struct {
	buf []byte
	pos int64
}

func newMemBacking() *memBacking {
	return &memBacking{buf: make([]byte, 0)}
}

func (m *memBacking) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memBacking) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memBacking) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = m.pos + offset
	case io.SeekEnd:
		np = int64(len(m.buf)) + offset
	}
	if np < 0 {
		return 0, os.ErrInvalid
	}
	m.pos = np
	return np, nil
}

func (m *memBacking) Close() error {
	return nil
}

func (m *memBacking) Size() (int64, error) {
	return int64(len(m.buf)), nil
}

func (m *memBacking) Truncate(size int64) error {
	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

func (m *memBacking) Path() string {
	return ""
}

func (m *memBacking) Bytes() []byte {
	return m.buf
}

type fileBacking struct {
	f progress.Progress
	w iowrapper.IOWrapper // delegates Read/Write/Seek to f; Close stays custom (CloseDelete)
}

func newFileBacking(scratchDir string) (*fileBacking, error) {
	pattern := "presence-*.sink"
	if scratchDir != "" {
		pattern = scratchDir + string(os.PathSeparator) + pattern
	}

	p, err := progress.Temp(pattern)
	if err != nil {
		return nil, err
	}

	return &fileBacking{f: p, w: iowrapper.New(p)}, nil
}

func (f *fileBacking) Read(p []byte) (int, error) {
	return f.w.Read(p)
}

func (f *fileBacking) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *fileBacking) Seek(offset int64, whence int) (int64, error) {
	return f.w.Seek(offset, whence)
}

func (f *fileBacking) Close() error {
	return f.f.CloseDelete()
}

func (f *fileBacking) Size() (int64, error) {
	st, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (f *fileBacking) Truncate(size int64) error {
	return f.f.Truncate(size)
}

func (f *fileBacking) Path() string {
	return f.f.Path()
}
