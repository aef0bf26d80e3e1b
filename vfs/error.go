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

// Package vfs implements the in-memory directory/file tree shared by the
// archive translators: a name-sorted, serialization-order-sorted node
// index with rename/copy/delete protocols and locking.
package vfs

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorNotFound errors.CodeError = iota + errors.MinPkgVFS
	ErrorAlreadyExists
	ErrorNotADirectory
	ErrorNotAFile
	ErrorLocked
	ErrorCyclicRename
	ErrorOutOfScope
	ErrorCopyFailed
)

func init() {
	errors.RegisterIdFctMessage(ErrorNotFound, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorNotFound:
		return "path not found"
	case ErrorAlreadyExists:
		return "a node of the same kind already exists at the destination"
	case ErrorNotADirectory:
		return "node is not a directory"
	case ErrorNotAFile:
		return "node is not a file"
	case ErrorLocked:
		return "node has open streams and cannot be deleted, renamed or reset"
	case ErrorCyclicRename:
		return "destination is a descendant of the node being renamed"
	case ErrorOutOfScope:
		return "path resolves outside the translator root"
	case ErrorCopyFailed:
		return "copy failed and the partially-constructed destination was removed"
	}

	return ""
}
