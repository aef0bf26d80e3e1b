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

// Package blockalloc implements a collision-free block allocator over a flat
// size_t-addressed region, supporting best-fit placement, fixed-position
// allocation, and in-place resize.
package blockalloc

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgBlockAlloc
	ErrorOverlap
	ErrorNotFound
	ErrorHandleAlreadyLinked
	ErrorFixupFailed
)

func init() {
	errors.RegisterIdFctMessage(ErrorParamsEmpty, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorParamsEmpty:
		return "given parameters are empty or invalid"
	case ErrorOverlap:
		return "requested region overlaps with an existing block"
	case ErrorNotFound:
		return "block handle not found in allocator"
	case ErrorHandleAlreadyLinked:
		return "handle is already linked into an allocator"
	case ErrorFixupFailed:
		return "one or more fixup entries could not be placed"
	}

	return ""
}
