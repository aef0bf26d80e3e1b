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
	"strings"

	"github.com/sabouaram/archivefs/errors"
)

// ResolveMode selects how a raw user path is anchored before being handed
// to the VFS tree.
type ResolveMode uint8

const (
	// Relative resolves against the translator's current directory.
	Relative ResolveMode = iota
	// RelativeFromRoot always resolves against the translator root,
	// ignoring the current directory.
	RelativeFromRoot
	// FullPath treats the raw string as already anchored; only a leading
	// "/" is accepted, and it is interpreted relative to the root.
	FullPath
)

// PathTranslator resolves user-supplied paths against a translator's root
// and current-directory into a canonical, scope-checked path string ready
// to hand to a vfs.Tree operation.
type PathTranslator struct {
	mode     ResolveMode
	outbreak bool // when true, paths may resolve outside the root
}

func NewPathTranslator(mode ResolveMode, outbreak bool) *PathTranslator {
	return &PathTranslator{mode: mode, outbreak: outbreak}
}

func (p *PathTranslator) Mode() ResolveMode { return p.mode }

// Canonicalize normalizes raw into an absolute, root-anchored path string.
// cwd is the translator's current directory (as reported by vfs.Tree),
// already itself an absolute path. The trailing slash of raw, if any, is
// preserved so callers can still distinguish directory lookups under
// Distinguished mode.
func (p *PathTranslator) Canonicalize(raw string, cwd string) (string, errors.Error) {
	trailingSlash := strings.HasSuffix(raw, "/") && raw != "/"

	var base string
	switch p.mode {
	case RelativeFromRoot:
		base = "/"
	case FullPath:
		if !strings.HasPrefix(raw, "/") {
			return "", ErrorPathOutOfScope.Error(nil)
		}
		base = "/"
	default: // Relative
		base = cwd
	}

	joined := raw
	if !strings.HasPrefix(raw, "/") {
		joined = joinSlash(base, raw)
	}

	comps, err := normalize(joined, p.outbreak)
	if err != nil {
		return "", err
	}

	out := "/" + strings.Join(comps, "/")
	if trailingSlash && out != "/" {
		out += "/"
	}
	return out, nil
}

func joinSlash(a, b string) string {
	a = strings.TrimSuffix(a, "/")
	b = strings.TrimPrefix(b, "/")
	if a == "" {
		return "/" + b
	}
	return a + "/" + b
}

// normalize lexically resolves "." and ".." components. When outbreak is
// false, a ".." that would climb above the root is rejected rather than
// silently clamped.
func normalize(path string, outbreak bool) ([]string, errors.Error) {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	var out []string
	for _, c := range raw {
		switch c {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				if !outbreak {
					return nil, ErrorPathOutOfScope.Error(nil)
				}
				continue
			}
			out = out[:len(out)-1]
		default:
			out = append(out, c)
		}
	}
	return out, nil
}
