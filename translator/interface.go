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
	"os"

	"github.com/sabouaram/archivefs/stream"
	"github.com/sabouaram/archivefs/wildcard"
)

// ArchiveTranslator is the contract both the IMG and ZIP translators
// implement for the upper filesystem façade.
type ArchiveTranslator interface {
	CreateDir(path string, mode stream.OpenMode, createParents bool) bool
	Open(path string, mode stream.OpenMode) (stream.Stream, *stream.OpenFailureError)
	Exists(path string) bool
	Delete(path string, mode stream.OpenMode) bool
	Copy(src, dst string) bool
	Rename(src, dst string) bool
	Size(path string) uint64
	QueryStats(path string) (os.FileInfo, bool)
	ScanDirectory(path string, pattern wildcard.Matcher, recurse bool, dirCB, fileCB func(name string)) bool
	BeginDirectoryListing(path string, pattern wildcard.Matcher, recurse bool) (DirIter, bool)
	Save() bool

	// Close closes every stream handed out by Open that the caller never
	// closed itself, then releases the translator's own close-tracking
	// context. Safe to call more than once.
	Close() error
}

// DirIter is a stateful cursor over a directory listing produced by
// BeginDirectoryListing.
type DirIter interface {
	Next() (name string, isDir bool, ok bool)
	Close()
}
