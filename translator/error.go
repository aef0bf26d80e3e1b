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

// Package translator defines the archive translator surface shared by the
// IMG and ZIP implementations: the path-resolution mixin, the common
// ArchiveTranslator contract, and the file-entry data-state machine both
// formats drive.
package translator

import "github.com/sabouaram/archivefs/errors"

const (
	ErrorPathOutOfScope errors.CodeError = iota + errors.MinPkgTranslator
	ErrorNotFound
	ErrorAlreadyExists
	ErrorAccessDenied
	ErrorResourcesExhausted
	ErrorUnknown
)

func init() {
	errors.RegisterIdFctMessage(ErrorPathOutOfScope, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorPathOutOfScope:
		return "path resolves outside the translator root"
	case ErrorNotFound:
		return "path not found"
	case ErrorAlreadyExists:
		return "path already exists"
	case ErrorAccessDenied:
		return "access denied"
	case ErrorResourcesExhausted:
		return "resources exhausted"
	case ErrorUnknown:
		return "unknown failure"
	}

	return ""
}
