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

import (
	"os"
	"time"

	"github.com/sabouaram/archivefs/stream"
)

// fileStream adapts an *os.File to the full stream.Stream surface: it backs
// both the archive's own raw positioned access and the chunked decoder's
// underlying reader when an entry is seeked into for the first time.
type fileStream struct {
	f *os.File
}

func openFileStream(path string) (*fileStream, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileStream{f: f}, nil
}

func (s *fileStream) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *fileStream) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *fileStream) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}
func (s *fileStream) Close() error { return s.f.Close() }

func (s *fileStream) Tell() int64 {
	p, _ := s.f.Seek(0, os.SEEK_CUR)
	return p
}
func (s *fileStream) TellNative() int32 { return int32(s.Tell()) }
func (s *fileStream) SeekNative(offset int32, whence int) (int32, error) {
	p, err := s.Seek(int64(offset), whence)
	return int32(p), err
}

func (s *fileStream) IsEOF() bool {
	pos := s.Tell()
	fi, err := s.f.Stat()
	if err != nil {
		return true
	}
	return pos >= fi.Size()
}

func (s *fileStream) QueryStats() (os.FileInfo, error) { return s.f.Stat() }
func (s *fileStream) SetFileTimes(atime, mtime time.Time) error {
	return os.Chtimes(s.f.Name(), atime, mtime)
}

func (s *fileStream) SetSeekEnd() error {
	pos := s.Tell()
	return s.f.Truncate(pos)
}

func (s *fileStream) GetSize() int64 {
	fi, err := s.f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}
func (s *fileStream) GetSizeNative() int32 { return int32(s.GetSize()) }

func (s *fileStream) Flush() error { return s.f.Sync() }

func (s *fileStream) CreateMapping() ([]byte, error) {
	return nil, stream.ErrorMappingUnsupported.Error(nil)
}

func (s *fileStream) GetPath() string   { return s.f.Name() }
func (s *fileStream) IsReadable() bool  { return true }
func (s *fileStream) IsWriteable() bool { return true }

func (s *fileStream) Truncate(size int64) error { return s.f.Truncate(size) }

func (s *fileStream) ReadAt(p []byte, off int64) (int, error)  { return s.f.ReadAt(p, off) }
func (s *fileStream) WriteAt(p []byte, off int64) (int, error) { return s.f.WriteAt(p, off) }

var _ stream.Stream = (*fileStream)(nil)
