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

package stream

// OpenDisposition controls how OpenMode resolves an existing-or-missing
// target path.
type OpenDisposition uint8

const (
	OpenExists OpenDisposition = iota
	CreateNoOverwrite
	CreateOverwrite
	OpenOrCreate
)

func (d OpenDisposition) String() string {
	switch d {
	case OpenExists:
		return "open-exists"
	case CreateNoOverwrite:
		return "create-no-overwrite"
	case CreateOverwrite:
		return "create-overwrite"
	case OpenOrCreate:
		return "open-or-create"
	default:
		return "unknown"
	}
}

// OpenMode is the request shape passed to a translator's Open operation.
type OpenMode struct {
	Disposition      OpenDisposition
	CreateParentDirs bool
	SeekAtEnd        bool
	AllowRead        bool
	AllowWrite       bool
}

// FileOpenFailure tags why Open failed, reported through the filesystem
// façade's error channel rather than as a bare error value so callers can
// branch on failure category without string matching.
type FileOpenFailure uint8

const (
	FailureNone FileOpenFailure = iota
	PathOutOfScope
	NotFound
	AlreadyExists
	AccessDenied
	ResourcesExhausted
	UnknownFailure
)

func (f FileOpenFailure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case PathOutOfScope:
		return "path-out-of-scope"
	case NotFound:
		return "not-found"
	case AlreadyExists:
		return "already-exists"
	case AccessDenied:
		return "access-denied"
	case ResourcesExhausted:
		return "resources-exhausted"
	default:
		return "unknown-error"
	}
}

// OpenFailureError pairs a FileOpenFailure tag with the underlying cause,
// if any, so the tag can be recovered by callers without losing context.
type OpenFailureError struct {
	Failure FileOpenFailure
	Cause   error
}

func (e *OpenFailureError) Error() string {
	if e.Cause == nil {
		return e.Failure.String()
	}
	return e.Failure.String() + ": " + e.Cause.Error()
}

func (e *OpenFailureError) Unwrap() error {
	return e.Cause
}

func NewOpenFailure(f FileOpenFailure, cause error) *OpenFailureError {
	return &OpenFailureError{Failure: f, Cause: cause}
}
