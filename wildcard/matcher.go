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

// Package wildcard compiles shell-style patterns ('*' and '?') into
// reusable matchers for directory-scan filtering.
package wildcard

import (
	"github.com/gobwas/glob"
)

// Matcher tests plain names (no path separators expected) against a
// compiled pattern.
type Matcher interface {
	Match(name string) bool
	Pattern() string
}

type matcher struct {
	pattern string
	g       glob.Glob
}

// Compile builds a Matcher for a shell-style pattern. An empty pattern
// matches everything, mirroring "no filter configured".
func Compile(pattern string) (Matcher, error) {
	if pattern == "" || pattern == "*" {
		return &matcher{pattern: pattern, g: nil}, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}

	return &matcher{pattern: pattern, g: g}, nil
}

// MustCompile is Compile but panics on an invalid pattern, for call sites
// that only ever pass constant patterns.
func MustCompile(pattern string) Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *matcher) Match(name string) bool {
	if m.g == nil {
		return true
	}
	return m.g.Match(name)
}

func (m *matcher) Pattern() string {
	return m.pattern
}

// MatchAll is a Matcher that accepts every name, used where a scan is not
// filtered.
var MatchAll Matcher = &matcher{pattern: "*"}
